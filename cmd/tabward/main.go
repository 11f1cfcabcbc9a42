package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tabward/internal/app"
	"tabward/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig loads the config from the default (or env-overridden) location.
func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}

	return cfg, defaults["config_path"], nil
}

// readPassphrase prompts on the terminal when encryption is enabled. Returns
// empty without prompting when it is not.
func readPassphrase(cfg *config.Config) (string, error) {
	if cfg.Encryption.Type == "none" {
		return "", nil
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pw), nil
}

var rootCmd = &cobra.Command{
	Use:   "tabward",
	Short: "Browser tab lifecycle manager",
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tab manager daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, configPath, err := readConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.NewApp(ctx, cfg, configPath)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		return a.Run(ctx)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Browser:    %s (%s)\n", cfg.Browser.Type, cfg.Browser.DevtoolsURL)
		fmt.Printf("API:        %s\n", cfg.API.Listen)
		fmt.Printf("Vault:      %s\n", cfg.Vault.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Threshold:  %d %s (enabled=%v)\n",
			cfg.Policy.ThresholdValue, cfg.Policy.ThresholdUnit, cfg.Policy.Enabled)
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the closed-tab archive",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "View archived tabs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		tabs, err := app.ListArchive(cfg, limit)
		if err != nil {
			return err
		}

		if len(tabs) == 0 {
			fmt.Println("No archived tabs.")
			return nil
		}

		for _, t := range tabs {
			title := t.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s  %s  %-40s  %s\n",
				t.ID,
				t.ClosedAt.Format("2006-01-02 15:04:05"),
				title,
				t.URL,
			)
		}
		return nil
	},
}

var archiveExportCmd = &cobra.Command{
	Use:   "export [NAME]",
	Short: "Export the archive to the vault",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		name := ""
		if len(args) > 0 {
			name = args[0]
		}

		passphrase, err := readPassphrase(cfg)
		if err != nil {
			return err
		}

		usedName, count, err := app.ExportArchive(cfg, name, passphrase)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Printf("Exported %d tab(s) to snapshot %s\n", count, usedName)
		return nil
	},
}

var archiveImportCmd = &cobra.Command{
	Use:   "import NAME",
	Short: "Import a snapshot from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase(cfg)
		if err != nil {
			return err
		}

		added, err := app.ImportArchive(cfg, args[0], passphrase)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Printf("Imported %d new tab(s)\n", added)
		return nil
	},
}

var archiveSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List snapshots in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		names, err := app.ListSnapshots(cfg)
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		url := fmt.Sprintf("http://%s/v1/status", cfg.API.Listen)
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if cfg.API.Token != "" {
			req.Header.Set("Authorization", "Bearer "+cfg.API.Token)
		}

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("daemon not reachable at %s: %w", cfg.API.Listen, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("daemon returned %s", resp.Status)
		}

		var status map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return fmt.Errorf("decoding status: %w", err)
		}

		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	archiveCmd.AddCommand(archiveListCmd)
	archiveListCmd.Flags().IntP("limit", "n", 50, "Maximum number of tabs to show")
	archiveCmd.AddCommand(archiveExportCmd)
	archiveCmd.AddCommand(archiveImportCmd)
	archiveCmd.AddCommand(archiveSnapshotsCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(statusCmd)
}
