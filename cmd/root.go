package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/killallgit/promptspec/pkg/config"
	"github.com/killallgit/promptspec/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes
const (
	exitError     = 1
	exitViolation = 2
)

// exitCodeError carries a non-default process exit code
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

var cfgFile string

// newRootCmd builds the command tree. Tests build a fresh tree per run so
// flag values never leak between executions.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "promptspec",
		Short: "Render and check declarative prompt specifications",
		Long: `promptspec loads YAML or JSON prompt specifications, validates variables,
renders templates and chat messages, and runs guardrails over model responses.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.promptspec/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newInspectCmd())

	return rootCmd
}

func Execute() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var coded *exitCodeError
	if errors.As(err, &coded) {
		os.Exit(coded.code)
	}
	os.Exit(exitError)
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := logger.InitWithConfig(cfg.Logging); err != nil {
		return err
	}

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("Using config file: %s", used)
	}
	return nil
}
