package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
	"github.com/dmxlan/dmxbridge-console/internal/config"
	"github.com/dmxlan/dmxbridge-console/internal/console"
	"github.com/dmxlan/dmxbridge-console/internal/logging"
)

var (
	serverURL string
	apiKey    string
	logLevel  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Bridge server URL (overrides the active profile)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (overrides profile and "+config.APIKeyEnvVar+")")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error)")

	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesUseCmd)
	profilesCmd.AddCommand(profilesRemoveCmd)
	profilesCmd.AddCommand(profilesSetKeyCmd)
}

// resolveClient builds the bridge client from flags, the active profile
// and the environment, in that precedence order.
func resolveClient(registry *config.Registry) *bridge.Client {
	url := serverURL
	if url == "" {
		if profile := registry.ActiveProfile(); profile != nil {
			url = registry.ActiveServer
		}
	}
	if url == "" {
		url = config.DefaultServerURL
	}

	key := apiKey
	if key == "" {
		key = config.ResolveAPIKey(registry.GetServer(url))
	}
	return bridge.NewClient(url, key)
}

func runShell(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the interactive shell needs a terminal")
	}

	configDir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("config directory: %w", err)
	}
	if logLevel != "" {
		if err := logging.Initialize(logLevel, configDir); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
	} else if err := logging.InitializeFromEnv(configDir); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logging.Sync()

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	client := resolveClient(registry)
	if serverURL != "" {
		registry.EnsureServer(serverURL)
		registry.SetActive(serverURL)
		if err := registry.Save(); err != nil {
			return fmt.Errorf("save profiles: %w", err)
		}
	}

	model := console.NewModel(client, registry)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	return nil
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage saved server profiles",
	Long: `Manage the server profiles stored in the registry file.

Each profile remembers a bridge URL and optionally an API key. The active
profile is the one the shell connects to by default.`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if len(registry.Servers) == 0 {
			fmt.Println("No profiles saved. Connect once with --server to create one.")
			return nil
		}

		for _, line := range profileLines(registry) {
			fmt.Println(line)
		}
		return nil
	},
}

// profileLines renders the saved profiles, sorted by name, with the
// active one marked.
func profileLines(registry *config.Registry) []string {
	names := make([]string, 0, len(registry.Servers))
	for name := range registry.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		profile := registry.Servers[name]
		marker := " "
		if name == registry.ActiveServer {
			marker = "*"
		}
		keyState := "no key"
		if profile.APIKey != "" {
			keyState = "key saved"
		}
		lines = append(lines, fmt.Sprintf("%s %s (%s)", marker, name, keyState))
		if !profile.LastUsed.IsZero() {
			lines = append(lines, fmt.Sprintf("    last used %s", profile.LastUsed.Format(time.RFC3339)))
		}
	}
	return lines
}

var profilesUseCmd = &cobra.Command{
	Use:   "use URL",
	Short: "Set the active profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		registry.EnsureServer(args[0])
		registry.SetActive(args[0])
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Active profile: %s\n", args[0])
		return nil
	},
}

var profilesRemoveCmd = &cobra.Command{
	Use:   "remove URL",
	Short: "Delete a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if registry.GetServer(args[0]) == nil {
			return fmt.Errorf("no profile for %s", args[0])
		}
		registry.RemoveServer(args[0])
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Removed profile %s\n", args[0])
		return nil
	},
}

var profilesSetKeyCmd = &cobra.Command{
	Use:   "set-key URL KEY",
	Short: "Store an API key for a profile",
	Long: `Store an API key for a server profile.

The key is written to the registry file with owner-only permissions. The
` + config.APIKeyEnvVar + ` environment variable still takes precedence
when set.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		profile := registry.EnsureServer(args[0])
		profile.APIKey = args[1]
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("API key saved for %s\n", args[0])
		return nil
	},
}
