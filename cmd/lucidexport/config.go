package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"lucidexport/pkg/config"
	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/ui"
)

const exampleConfig = `# lucidexport configuration file
#
# Every option can also be set with an environment variable or a flag.
# Precedence: flags > environment > .env file > this file > defaults

# Lucid API access
lucid:
  # API key; prefer LUCID_API_KEY or 'lucidexport auth login' over storing it here
  api_key: ""
  base_url: "https://api.lucid.co"
  api_version: "1"

# Page export settings
export:
  # Accept header sent for each page
  content_type: "image/png;dpi=256"
  # File extension of exported pages
  extension: "png"
  # Crop mode passed to the API
  crop: "content"
  # Maximum page downloads in flight across all documents
  concurrency: 12
  # Timeout for a single HTTP request
  request_timeout: 2m

# Output settings
output:
  base_directory: "./LucidExports"
  # JSON run report; leave empty to skip
  report_file: ""

# Prometheus text-format metrics written after each run
metrics:
  textfile: ""

notifications:
  enabled: false

# Logging configuration
logging:
  # debug, info, warn, error, disabled
  level: "info"
  # Log file path; leave empty to log to stderr only
  file: ""
  no_color: false
`

func newConfigCmd(global *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage lucidexport configuration files.

Configuration is loaded from:
  - Command line flags (highest priority)
  - Environment variables (LUCID_API_KEY, LUCIDEXPORT_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create an example configuration file",
		Long: `Create an example configuration file with all available options.

The file is created as '.lucidexport.yaml' in the current directory unless a
different path is given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.configFile
			if path == "" {
				path = ".lucidexport.yaml"
			}
			if _, err := os.Stat(path); err == nil {
				return lerrors.Config("configuration file already exists: %s", path)
			}
			if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}
			ui.PrintSuccess("Configuration file created: " + path)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show the configuration after merging every source. The API key is masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, global, &exportOptions{})
			if err != nil {
				return err
			}

			display := *cfg
			display.Lucid.APIKey = config.MaskSecret(display.Lucid.APIKey)

			data, err := yaml.Marshal(&display)
			if err != nil {
				return fmt.Errorf("failed to format configuration: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load every configuration source and report invalid values.

A missing API key is reported as a warning since it may come from the
credential store at run time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, global, &exportOptions{})
			if err != nil {
				return err
			}

			if cfg.Lucid.APIKey == "" {
				ui.PrintWarning("No API key configured; a stored credential will be used if present")
			}
			ui.PrintSuccess("Configuration is valid")
			ui.PrintInfo("Output directory", cfg.Output.BaseDirectory)
			ui.PrintInfo("Concurrency", fmt.Sprintf("%d", cfg.Export.Concurrency))
			ui.PrintInfo("Content type", cfg.Export.ContentType)
			ui.PrintInfo("Log level", cfg.Logging.Level)
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}
