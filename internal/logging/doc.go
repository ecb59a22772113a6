// Package logging provides centralized logging for the console using zap.
//
// Logging is silent by default so the interactive shell keeps full control
// of the terminal. Set DMX_CONSOLE_LOG_LEVEL (debug, info, warn, error) to
// enable debug logging; output goes to console.log in the configuration
// directory, or wherever DMX_CONSOLE_LOG_FILE points.
package logging
