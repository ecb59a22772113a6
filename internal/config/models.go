package config

import "time"

// Registry represents the entire user configuration file.
// This stores server connection profiles and shell preferences.
type Registry struct {
	Version      int                       `yaml:"version"`
	Servers      map[string]*ServerProfile `yaml:"servers,omitempty"` // Keyed by profile name
	ActiveServer string                    `yaml:"active_server,omitempty"`
	Preferences  *Preferences              `yaml:"preferences,omitempty"`
}

// ServerProfile describes one bridge server the console can connect to.
type ServerProfile struct {
	URL      string    `yaml:"url"`                 // Base URL, e.g. "http://192.168.1.50:8080"
	APIKey   string    `yaml:"api_key,omitempty"`   // Optional API key for authenticated bridges
	LastUsed time.Time `yaml:"last_used,omitempty"` // Last successful connection time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	HistorySize     int    `yaml:"history_size"`     // Max shell history entries kept on disk
	RefreshInterval int    `yaml:"refresh_interval"` // Log view auto-refresh interval in seconds
	OutputFormat    string `yaml:"output_format"`    // "table" or "json"
}

// Default connection settings used when no profile exists yet.
const (
	DefaultServerURL       = "http://127.0.0.1:8080"
	DefaultHistorySize     = 1000
	DefaultRefreshInterval = 5
)

// APIKeyEnvVar overrides the active profile's API key when set.
const APIKeyEnvVar = "DMX_LAN_API_KEY"

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Servers: make(map[string]*ServerProfile),
		Preferences: &Preferences{
			HistorySize:     DefaultHistorySize,
			RefreshInterval: DefaultRefreshInterval,
			OutputFormat:    "table",
		},
	}
}

// GetServer retrieves a server profile by name.
// Returns nil if the profile doesn't exist in the registry.
func (r *Registry) GetServer(name string) *ServerProfile {
	return r.Servers[name]
}

// EnsureServer ensures a server profile exists in the registry.
// If the profile doesn't exist, creates a new entry with default values.
// Returns the profile (existing or newly created).
func (r *Registry) EnsureServer(name string) *ServerProfile {
	if r.Servers == nil {
		r.Servers = make(map[string]*ServerProfile)
	}

	if server, exists := r.Servers[name]; exists {
		return server
	}

	server := &ServerProfile{URL: DefaultServerURL}
	r.Servers[name] = server
	return server
}

// SetActive marks a profile as the active one and stamps its last-used time.
func (r *Registry) SetActive(name string) {
	server := r.EnsureServer(name)
	server.LastUsed = time.Now()
	r.ActiveServer = name
}

// ActiveProfile returns the currently active server profile, or nil when
// no profile has been selected yet.
func (r *Registry) ActiveProfile() *ServerProfile {
	if r.ActiveServer == "" {
		return nil
	}
	return r.Servers[r.ActiveServer]
}

// RemoveServer deletes a profile. If it was the active profile, the active
// selection is cleared.
func (r *Registry) RemoveServer(name string) {
	delete(r.Servers, name)
	if r.ActiveServer == name {
		r.ActiveServer = ""
	}
}
