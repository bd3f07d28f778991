package cmd

import (
	_ "embed"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/specmint/specmint-cli/internal/log"
	"github.com/specmint/specmint-cli/internal/utils"
	"github.com/specmint/specmint-cli/internal/version"
)

var (
	cfgFile     string
	debug       bool
	showVersion bool
)

//go:embed short_docs/overview.md
var overviewContent string

var rootCmd = &cobra.Command{
	Use:   "specmint",
	Short: "Specmint CLI - API test generation context library",
	Long:  utils.RenderMarkdown(overviewContent),
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			version.PrintVersion()
			os.Exit(0)
		}
		log.Setup(debug)

		var setFlags []string
		cmd.Flags().Visit(func(f *pflag.Flag) {
			setFlags = append(setFlags, f.Name)
		})
		log.Debug("Command invoked", "command", cmd.Name(), "flags", setFlags)
		return nil
	},
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.UserError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default: .specmint/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Print version information")
}
