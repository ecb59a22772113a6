// Package config manages the console's persistent user configuration.
//
// Configuration lives in a YAML file under the platform config directory
// ($XDG_CONFIG_HOME/dmx-console on Linux). It holds named server profiles,
// the active profile selection, and shell preferences. Shell command
// history is persisted next to it in a plain text file.
//
// All writes are atomic (temp file + rename) so a crash never leaves a
// half-written config behind.
package config
