package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sembly/semcall/internal/config"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "semcall",
	Short: "Semcall - semantic call resolution and compilation cache",
	Long: `Semcall resolves semantic calls: method invocations whose behavior is
specified by their surrounding source code and answered by a language model.

The CLI inspects and manages the compiled-artifact cache shared by semcall
programs: listing cached artifacts, showing their compiled prompts, and
evicting stale entries.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// loadConfig reads the configured semcall.yml
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to semcall.yml")

	// Silence Cobra's default error and usage printing
	// printer.Error already writes rich errors to stderr
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}
