package client

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/zrepl/calldown/cli"
	"github.com/zrepl/calldown/version"
)

var versionArgs struct {
	Json bool
}

var VersionCmd = &cli.Subcommand{
	Use:             "version",
	Short:           "print version of calldown binary",
	NoRequireConfig: true,
	SetupFlags: func(f *pflag.FlagSet) {
		f.BoolVar(&versionArgs.Json, "json", false, "emit JSON")
	},
	Run: func(ctx context.Context, subcommand *cli.Subcommand, args []string) error {
		info := version.NewVersionInformation()
		if versionArgs.Json {
			return printJSON(os.Stdout, info)
		}
		fmt.Println(info.String())
		return nil
	},
}
