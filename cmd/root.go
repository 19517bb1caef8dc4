// Package cmd implements the command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/JimmyDurandWesolowski/pycom/pkg/config"
	"github.com/JimmyDurandWesolowski/pycom/pkg/logging"
	"github.com/JimmyDurandWesolowski/pycom/pkg/serialio"
	"github.com/JimmyDurandWesolowski/pycom/pkg/terminal"
)

var (
	// Root command flags
	flagConfig  string
	flagPort    string
	flagBaud    int
	flagProject string
	flagVerbose int

	rootCmd = &cobra.Command{
		Use:   "pycom [input files...]",
		Short: "A pane based serial command terminal",
		Long: `pycom opens an interactive multi-pane console over a serial port:
commands are typed in one pane, device output streams into another and
status messages land in an information strip. Positional arguments are
files whose lines are sent before interactive input starts, through the
same rate limited path as typed commands.`,
		Version:           "1.0.0",
		Args:              cobra.ArbitraryArgs,
		RunE:              runTerminal,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "configuration file (default ~/.config/pycom/config.json)")
	rootCmd.Flags().StringVarP(&flagPort, "port", "p", "", "serial port device")
	rootCmd.Flags().IntVarP(&flagBaud, "baud", "b", 0, "baud rate")
	rootCmd.Flags().StringVar(&flagProject, "project", "", "project name for history and completion files")
	rootCmd.Flags().CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (repeatable)")

	rootCmd.AddCommand(listCmd)
}

func runTerminal(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagPort != "" {
		cfg.Serial.Port = flagPort
	}
	if flagBaud != 0 {
		cfg.Serial.BaudRate = flagBaud
	}
	if flagProject != "" {
		cfg.Project = flagProject
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging, flagVerbose)
	if err != nil {
		return err
	}
	defer closer.Close()

	if hint := portHint(cfg.Serial.Port); hint != "" {
		logger.Info("port hint", "port", cfg.Serial.Port, "closest", hint)
	}

	engine := terminal.New(cfg, logger, terminal.Options{InputFiles: args})
	if err := engine.Run(context.Background()); err != nil {
		if hint := portHint(cfg.Serial.Port); hint != "" {
			return fmt.Errorf("%w (did you mean %s?)", err, hint)
		}
		return err
	}
	return nil
}

// portHint returns the closest known serial port when the configured
// one does not exist, or "" when it does or nothing is close enough.
func portHint(port string) string {
	ports, err := serialio.ListPorts()
	if err != nil || len(ports) == 0 {
		return ""
	}
	best := ""
	bestDist := len(port)
	for _, candidate := range ports {
		if candidate == port {
			return ""
		}
		if d := levenshtein.ComputeDistance(port, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
