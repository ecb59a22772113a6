package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const historyFile = "shell_history"

// GetHistoryPath returns the full path to the shell history file.
func GetHistoryPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, historyFile), nil
}

// LoadHistory reads the shell history file, one command per line, oldest
// first. A missing file is not an error - it returns an empty history.
func LoadHistory() ([]string, error) {
	path, err := GetHistoryPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// SaveHistory writes the shell history to disk, keeping at most maxEntries
// of the most recent commands. Uses the same atomic write pattern as the
// registry.
func SaveHistory(entries []string, maxEntries int) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := ensureConfigDir(); err != nil {
		return fmt.Errorf("failed to ensure config directory exists: %w", err)
	}

	if maxEntries > 0 && len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}

	path, err := GetHistoryPath()
	if err != nil {
		return err
	}

	data := []byte(strings.Join(entries, "\n"))
	if len(entries) > 0 {
		data = append(data, '\n')
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary history file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save history file: %w", err)
	}

	return nil
}
