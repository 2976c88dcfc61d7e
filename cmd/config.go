package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamal-hamza/lima-cli/pkg/config"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the lima configuration file",
	Long: `Open the configuration file in your editor. A file with the default
settings is created first when none exists.

Environment variables (also read from a .env file in the current directory):
  ` + config.EnvAPIURL + `    server URL
  ` + config.EnvLogLevel + `  log level (debug, info, warn, error)`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printLine(appDirs.ConfigPath)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after environment overrides and repairs.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagJSON {
			return printJSON(appConfig)
		}
		data, err := yaml.Marshal(appConfig)
		if err != nil {
			return err
		}
		out := string(data)
		if isTerminal() && appConfig.SyntaxHighlighting {
			out = ui.Highlight(out, "yaml")
		}
		fmt.Fprint(stdout, out)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path := appDirs.ConfigPath

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.DefaultConfig().Save(path); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
		printLine(ui.FormatSuccess("Created default config"))
	}

	printLine(ui.FormatInfo("Opening config: " + path))
	return OpenEditor(path)
}
