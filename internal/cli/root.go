// Package cli implements the cablesize command line tool.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CABLESIZE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "cablesize",
		Short:         "Size cables and trace supply paths for a cable schedule",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "Log sizing and tracing details to stderr")

	rootCmd.AddCommand(SizeCommand(v))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// flags take precedence over CABLESIZE_* environment values
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		return v.BindPFlags(cmd.Root().PersistentFlags())
	}

	return rootCmd
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
