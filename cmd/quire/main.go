package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/inkcell/quire/config"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var (
	flagConfig string
	verbosity  int
	cfg        config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quire",
		Short: "A notebook runtime for JavaScript",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Resolve(flagConfig)
			if err != nil {
				return err
			}
			if verbosity == 0 {
				verbosity = cfg.Verbose
			}
			commonlog.Configure(verbosity, nil)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to quire.toml or quire.yaml")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")

	rootCmd.AddCommand(newReplCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLSPCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
