package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/zrepl/calldown/cli"
	"github.com/zrepl/calldown/zfs/lzc"
)

var LzcCmd = &cli.Subcommand{
	Use:   "lzc",
	Short: "manipulate datasets through libzfs_core",
	SetupSubcommands: func() []*cli.Subcommand {
		return []*cli.Subcommand{
			lzcExistsCmd,
			lzcCheckpointCmd,
			lzcDiscardCheckpointCmd,
			lzcSnapshotCmd,
			lzcRollbackCmd,
		}
	},
}

// withCore opens libzfs_core for the duration of f.
func withCore(f func(c lzc.Core) error) error {
	c, err := lzc.Open()
	if err != nil {
		return err
	}
	defer c.Close()
	return f(c)
}

func exactlyOneArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("this subcommand takes exactly one positional argument")
	}
	return args[0], nil
}

var lzcExistsCmd = &cli.Subcommand{
	Use:   "exists DATASET|SNAPSHOT|BOOKMARK",
	Short: "exit with an error if the named object does not exist",
	Run: func(ctx context.Context, sc *cli.Subcommand, args []string) error {
		name, err := exactlyOneArg(args)
		if err != nil {
			return err
		}
		return withCore(func(c lzc.Core) error {
			if !c.Exists(name) {
				return errors.Errorf("%q does not exist", name)
			}
			fmt.Printf("%s exists\n", name)
			return nil
		})
	},
}

var lzcCheckpointCmd = &cli.Subcommand{
	Use:   "checkpoint POOL",
	Short: "create a pool checkpoint",
	Run: func(ctx context.Context, sc *cli.Subcommand, args []string) error {
		pool, err := exactlyOneArg(args)
		if err != nil {
			return err
		}
		return withCore(func(c lzc.Core) error {
			sc.Logger().WithField("pool", pool).Info("creating checkpoint")
			return c.Checkpoint(pool)
		})
	},
}

var lzcDiscardCheckpointCmd = &cli.Subcommand{
	Use:   "discard-checkpoint POOL",
	Short: "discard the checkpoint of a pool",
	Run: func(ctx context.Context, sc *cli.Subcommand, args []string) error {
		pool, err := exactlyOneArg(args)
		if err != nil {
			return err
		}
		return withCore(func(c lzc.Core) error {
			sc.Logger().WithField("pool", pool).Info("discarding checkpoint")
			return c.CheckpointDiscard(pool)
		})
	},
}

var lzcSnapshotFlags struct {
	Props []string
}

var lzcSnapshotCmd = &cli.Subcommand{
	Use:     "snapshot SNAPSHOT...",
	Short:   "atomically create one or more snapshots",
	Example: "calldown lzc snapshot --prop com.example:tag=nightly tank/a@now tank/b@now",
	SetupFlags: func(f *pflag.FlagSet) {
		f.StringArrayVar(&lzcSnapshotFlags.Props, "prop", nil, "user property NAME=VALUE to set on the snapshots")
	},
	Run: func(ctx context.Context, sc *cli.Subcommand, args []string) error {
		if len(args) == 0 {
			return errors.New("specify at least one snapshot")
		}
		props, err := parsePropFlags(lzcSnapshotFlags.Props)
		if err != nil {
			return err
		}
		return withCore(func(c lzc.Core) error {
			sc.Logger().WithField("snapshots", args).Info("creating snapshots")
			return c.Snapshot(args, props)
		})
	},
}

func parsePropFlags(in []string) (map[string]string, error) {
	props := make(map[string]string, len(in))
	for _, p := range in {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, errors.Errorf("invalid property %q, expecting NAME=VALUE", p)
		}
		props[kv[0]] = kv[1]
	}
	return props, nil
}

var lzcRollbackFlags struct {
	To string
}

var lzcRollbackCmd = &cli.Subcommand{
	Use:   "rollback FILESYSTEM",
	Short: "roll back to the most recent snapshot, or to --to",
	SetupFlags: func(f *pflag.FlagSet) {
		f.StringVar(&lzcRollbackFlags.To, "to", "", "snapshot to roll back to, must be the most recent one")
	},
	Run: func(ctx context.Context, sc *cli.Subcommand, args []string) error {
		fs, err := exactlyOneArg(args)
		if err != nil {
			return err
		}
		return withCore(func(c lzc.Core) error {
			if lzcRollbackFlags.To != "" {
				return c.RollbackTo(fs, lzcRollbackFlags.To)
			}
			snap, err := c.Rollback(fs)
			if err != nil {
				return err
			}
			fmt.Printf("rolled back %s to %s\n", fs, snap)
			return nil
		})
	},
}
