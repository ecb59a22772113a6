// Dmx-console is an interactive terminal console for a remote DMX/Art-Net
// lighting bridge.
//
// It talks to the bridge's REST API for devices, channel mappings, logs
// and control operations, and to its WebSocket endpoints for live log and
// event streaming. Server profiles and command history persist under the
// user config directory.
//
// Usage:
//
//	dmx-console [command] [flags]
//
// Running without arguments opens the interactive shell against the
// active server profile. See 'dmx-console --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmxlan/dmxbridge-console/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dmx-console",
	Short: "Interactive console for a DMX/Art-Net lighting bridge",
	Long: `An interactive terminal console for operating a remote DMX/Art-Net
lighting bridge.

Provides a command shell with live log tailing, a paginated log browser,
an event stream viewer and periodic watch views, all over the bridge's
REST and WebSocket APIs.

If no command is specified, the interactive shell opens against the
active server profile.`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runShell,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dmx-console %s\n", version.Full())
	},
}
