package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zrepl/calldown/config"
	"github.com/zrepl/calldown/logger"
	"github.com/zrepl/calldown/logging"
	"github.com/zrepl/calldown/zfs"
)

var rootArgs struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "calldown",
	Short: "ZFS pool and dataset inventory",
}

var bashcompCmd = &cobra.Command{
	Use:   "bashcomp path/to/out/file",
	Short: "generate bash completions",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Fprintf(os.Stderr, "specify exactly one positional argument\n")
			cmd.Usage()
			os.Exit(1)
		}
		if err := rootCmd.GenBashCompletionFile(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "error generating bash completion: %s", err)
			os.Exit(1)
		}
	},
	Hidden: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootArgs.configPath, "config", "", "config file path")
	rootCmd.AddCommand(bashcompCmd)
}

type Subcommand struct {
	Use     string
	Short   string
	Long    string
	Example string
	// If set, an unparsable config file is not fatal and Config() may return nil.
	NoRequireConfig bool
	// Long running commands are not bounded by global.zfs.command_timeout.
	LongRunning      bool
	Run              func(ctx context.Context, subcommand *Subcommand, args []string) error
	SetupFlags       func(f *pflag.FlagSet)
	SetupSubcommands func() []*Subcommand

	config    *config.Config
	configErr error
	log       logger.Logger
}

func (s *Subcommand) ConfigParsingError() error {
	return s.configErr
}

func (s *Subcommand) Config() *config.Config {
	if !s.NoRequireConfig && s.config == nil {
		panic("command that requires config is running and has no config set")
	}
	return s.config
}

// Logger is the cli subsystem logger, valid while Run executes.
func (s *Subcommand) Logger() logger.Logger {
	return s.log
}

var errorColor = color.New(color.FgRed)

func (s *Subcommand) run(cmd *cobra.Command, args []string) {
	s.tryParseConfig()

	effective := s.config
	if effective == nil {
		effective = config.DefaultConfig()
	}
	log, err := logging.NewLoggerFromConfig(effective.Global.Logging)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "cannot build logging from config: %s\n", err)
		os.Exit(1)
	}
	s.log = logging.LogSubsystem(log, logging.SubsysCLI)
	applyZFSConfig(effective.Global.ZFS)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if timeout := effective.Global.ZFS.CommandTimeout; timeout > 0 && !s.LongRunning {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		defer cancelTimeout()
	}
	ctx = logging.WithSubsystemLoggers(ctx, log)

	err = s.Run(ctx, s, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Wrap(err, "global.zfs.command_timeout exceeded")
		}
		errorColor.Fprintf(os.Stderr, "%s\n", err)
		cancel()
		os.Exit(1)
	}
}

// applyZFSConfig overrides the binaries only where the config deviates from
// the defaults, so CALLDOWN_ZFS_BINARY and CALLDOWN_ZPOOL_BINARY keep working
// without a config file.
func applyZFSConfig(c *config.GlobalZFS) {
	if c.ZFSBinary != "" && c.ZFSBinary != "zfs" {
		zfs.ZFS_BINARY = c.ZFSBinary
	}
	if c.ZPoolBinary != "" && c.ZPoolBinary != "zpool" {
		zfs.ZPOOL_BINARY = c.ZPoolBinary
	}
}

func (s *Subcommand) tryParseConfig() {
	config, err := parseConfig(rootArgs.configPath)
	s.configErr = err
	if err != nil {
		if s.NoRequireConfig {
			// doesn't matter
			return
		} else {
			errorColor.Fprintf(os.Stderr, "could not parse config: %s\n", err)
			os.Exit(1)
		}
	}
	s.config = config
}

// parseConfig falls back to the built-in defaults if no config file exists.
func parseConfig(path string) (*config.Config, error) {
	c, err := config.ParseConfig(path)
	if err == config.ErrNoConfigFile {
		return config.DefaultConfig(), nil
	}
	return c, err
}

func AddSubcommand(s *Subcommand) {
	addSubcommandToCobraCmd(rootCmd, s)
}

func addSubcommandToCobraCmd(c *cobra.Command, s *Subcommand) {
	cmd := cobra.Command{
		Use:     s.Use,
		Short:   s.Short,
		Long:    s.Long,
		Example: s.Example,
	}
	if s.SetupSubcommands == nil {
		cmd.Run = s.run
	} else {
		for _, sub := range s.SetupSubcommands() {
			addSubcommandToCobraCmd(&cmd, sub)
		}
	}
	if s.SetupFlags != nil {
		s.SetupFlags(cmd.Flags())
	}
	c.AddCommand(&cmd)
}

func Run() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
