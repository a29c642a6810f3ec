// Package cli implements the docmodel command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/docmodel/internal/paths"
)

// exitFailure is the process exit code when a command fails.
const exitFailure = 1

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
}

var flags rootFlags

// session is the state PersistentPreRunE resolves for subcommands.
type session struct {
	configDir string
	config    *viper.Viper
	logger    *slog.Logger
}

var sess session

// NewRootCmd creates the top-level "docmodel" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	sess = session{}

	root := &cobra.Command{
		Use:     "docmodel",
		Short:   "Attribute documents with formulas, templates and undoable commands",
		Long:    "docmodel evaluates attribute formulas, inspects templates and replays\njournaled command streams of documents.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: .docmodel-data)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newTemplatesCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newListenCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitFailure)
	}
}

// setup resolves the config dir, loads config.yaml and builds the logger.
func setup(stderr io.Writer) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		v.Set(cfgKeyLogLevel, flags.logLevel)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(cfgKeyLogLevel))); err != nil {
		return fmt.Errorf("invalid %s: %w", cfgKeyLogLevel, err)
	}

	sess = session{
		configDir: configDir,
		config:    v,
		logger:    slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
	return nil
}

// resolveDataDir applies flag > config.yaml > env > default.
func resolveDataDir() (string, error) {
	var configured string
	if sess.config != nil {
		configured = sess.config.GetString(cfgKeyDataDir)
	}
	return paths.ResolveDataDir(flags.dataDir, configured)
}

// resolveTemplatesFile returns the configured templates file.
func resolveTemplatesFile() (string, error) {
	var configured string
	if sess.config != nil {
		configured = sess.config.GetString(cfgKeyTemplatesFile)
	}
	return paths.ResolveTemplatesFile(sess.configDir, configured)
}

func logger() *slog.Logger {
	if sess.logger == nil {
		return slog.Default()
	}
	return sess.logger
}
