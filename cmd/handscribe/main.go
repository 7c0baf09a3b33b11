package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/handscribe/internal/common"
)

var version = "dev"

// app is the state shared by every subcommand once the root has loaded config.
type app struct {
	cfgFile string
	cfg     *common.Config
	logger  *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:          "handscribe",
		Short:        "Extract handwritten or printed text from images with Gemini",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfigFile(a.cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = common.NewLogger(cfg.Log)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", os.Getenv("HANDSCRIBE_CONFIG"), "YAML config overlaid on the environment (default $HANDSCRIBE_CONFIG)")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newExtractCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// config is irrelevant here
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "handscribe "+version)
		},
	}
}
