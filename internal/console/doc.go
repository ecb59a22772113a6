// Package console implements the interactive shell for operating a remote
// DMX/Art-Net bridge.
//
// Built on Bubble Tea, the shell keeps a single Update goroutine owning
// all UI state. Normal mode is a command line with history; four
// full-screen modes take over the content area above a two-line status
// toolbar:
//
//   - LogTail: follows the /logs/stream WebSocket into a bounded buffer
//   - LogView: a paginated HTTP-polled log browser with search and modals
//   - Events: follows the /events/stream WebSocket
//   - Watch: periodically re-renders one command's output into an overlay
//
// Exactly one mode is live at a time. Entering a mode constructs and
// starts its controller; leaving it settles the controller (streams
// stopped, tickers dead) before the prompt returns.
//
// # Concurrency
//
// WebSocket receive loops run in goroutines owned by a Stream, a
// reconnecting state machine with exponential backoff (1s doubling to a
// 10s cap, reset on success). Network goroutines never touch a display
// buffer directly: formatted lines are staged in a mutex-guarded
// LineQueue and drained into the buffer by the update loop on a 100ms
// heartbeat, one append per batch. REST fetches for the log browser,
// watch refreshes, and the toolbar run as tea.Cmds against parameters
// snapshotted in the update loop, so a slow bridge never blocks keys.
//
// # Output buffers
//
// Display buffers are append-mostly text with a cursor and a follow flag.
// They are bounded at 500k characters; trimming removes whole lines from
// the front, never splitting a line, and keeps the cursor on the content
// it pointed at.
//
// # Framework components
//
//   - bubbles/textinput: the command prompt
//   - bubbles/key: shared keybinding definitions
//   - lipgloss: styling, palette in styles.go
//   - charmbracelet/x/ansi: width-aware truncation and word-wrapping
//   - google/shlex: shell-style command tokenizing
package console
