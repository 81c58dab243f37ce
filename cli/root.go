package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/termgraph/config"
)

// NewRootCmd creates the termgraph command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "termgraph",
		Short: "termgraph expression evaluation CLI",
		Long:  "termgraph builds symbolic expression trees and evaluates them into ordered term collections.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Config file (default: ./termgraph.yaml, then ~/.termgraph/config.yaml)")
	root.PersistentFlags().Bool("verbose", false, "Enable verbose/debug logging")
	root.PersistentFlags().Bool("quiet", false, "Suppress all output except errors")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("termgraph version %s\n", version))

	root.AddCommand(NewEvalCmd())
	root.AddCommand(NewRenderCmd())
	root.AddCommand(NewOperatorsCmd())
	root.AddCommand(NewEventsCmd())
	return root
}

// loadConfig resolves the --config flag through config discovery.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	cfg, path, err := config.Resolve(explicit)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, os.ErrNotExist):
		return config.Config{}, exitError(exitFileNotFound, "config file not found: %s", explicit)
	case path != "":
		return config.Config{}, exitError(exitValidation, "loading config %s: %w", path, err)
	default:
		return config.Config{}, exitError(exitValidation, "loading config: %w", err)
	}
}

// newLogger builds the slog logger for a command. --verbose and --quiet
// override the configured level.
func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = slog.LevelError
	}
	return newHandlerLogger(cmd.ErrOrStderr(), cfg.Log.Format, level)
}

func newHandlerLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
