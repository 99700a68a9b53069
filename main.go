// Command calldown lists ZFS pools and datasets, exports them as
// prometheus metrics and drives libzfs_core.
package main

import (
	"github.com/zrepl/calldown/cli"
	"github.com/zrepl/calldown/client"
)

func init() {
	cli.AddSubcommand(client.PoolsCmd)
	cli.AddSubcommand(client.DatasetsCmd)
	cli.AddSubcommand(client.PropsCmd)
	cli.AddSubcommand(client.TreeCmd)
	cli.AddSubcommand(client.ExporterCmd)
	cli.AddSubcommand(client.LzcCmd)
	cli.AddSubcommand(client.ConfigcheckCmd)
	cli.AddSubcommand(client.VersionCmd)
}

func main() {
	cli.Run()
}
