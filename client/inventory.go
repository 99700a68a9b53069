package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/zrepl/calldown/cli"
	"github.com/zrepl/calldown/zfs"
)

var poolsFlags struct {
	Json       bool
	Properties bool
}

var PoolsCmd = &cli.Subcommand{
	Use:   "pools",
	Short: "list imported pools",
	SetupFlags: func(f *pflag.FlagSet) {
		f.BoolVar(&poolsFlags.Json, "json", false, "emit JSON")
		f.BoolVar(&poolsFlags.Properties, "properties", false, "include all pool properties")
	},
	Run: doPools,
}

type poolJSON struct {
	Name       string          `json:"name"`
	Properties zfs.PropertyMap `json:"properties,omitempty"`
}

func doPools(ctx context.Context, sc *cli.Subcommand, args []string) error {
	if len(args) > 0 {
		return errors.New("this subcommand takes no positional arguments")
	}

	pools, err := zfs.ListPools(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot list pools")
	}
	out := make([]poolJSON, 0, pools.Len())
	for it := pools.Iter(); it.Next(); {
		out = append(out, poolJSON{Name: it.Pool().Name})
	}

	if poolsFlags.Properties {
		g, gctx := errgroup.WithContext(ctx)
		for i := range out {
			i := i
			g.Go(func() error {
				props, err := zfs.Pool{Name: out[i].Name}.Properties(gctx)
				if err != nil {
					return errors.Wrapf(err, "cannot get properties of pool %q", out[i].Name)
				}
				out[i].Properties = props
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if poolsFlags.Json {
		return printJSON(os.Stdout, out)
	}
	for _, p := range out {
		if p.Properties == nil {
			fmt.Println(p.Name)
			continue
		}
		if err := printProperties(os.Stdout, p.Name, p.Properties); err != nil {
			return err
		}
	}
	return nil
}

var datasetsFlags struct {
	Json bool
}

var DatasetsCmd = &cli.Subcommand{
	Use:   "datasets [ROOT]",
	Short: "list datasets, optionally only ROOT and its descendants",
	SetupFlags: func(f *pflag.FlagSet) {
		f.BoolVar(&datasetsFlags.Json, "json", false, "emit JSON")
	},
	Run: doDatasets,
}

func doDatasets(ctx context.Context, sc *cli.Subcommand, args []string) error {
	var root string
	switch len(args) {
	case 0:
	case 1:
		root = args[0]
	default:
		return errors.New("this subcommand takes at most one positional argument")
	}

	datasets, err := zfs.ListDatasetsUnder(ctx, root)
	if err != nil {
		return errors.Wrap(err, "cannot list datasets")
	}
	names := make([]string, 0, datasets.Len())
	for it := datasets.Iter(); it.Next(); {
		names = append(names, it.Dataset().Name)
	}
	if datasetsFlags.Json {
		return printJSON(os.Stdout, names)
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

var propsFlags struct {
	Json    bool
	Dataset bool
}

var PropsCmd = &cli.Subcommand{
	Use:   "props POOL|DATASET",
	Short: "show all properties of a pool or dataset",
	Long:  `Names without a '/' or '@' are treated as pools unless --dataset is given.`,
	SetupFlags: func(f *pflag.FlagSet) {
		f.BoolVar(&propsFlags.Json, "json", false, "emit JSON")
		f.BoolVar(&propsFlags.Dataset, "dataset", false, "treat a pool name as its root dataset")
	},
	Run: doProps,
}

func doProps(ctx context.Context, sc *cli.Subcommand, args []string) error {
	if len(args) != 1 {
		return errors.New("this subcommand takes exactly one positional argument")
	}
	name := args[0]

	var props zfs.PropertyMap
	var err error
	if propsFlags.Dataset || strings.ContainsAny(name, "/@#") {
		props, err = zfs.Dataset{Name: name}.Properties(ctx)
	} else {
		props, err = zfs.Pool{Name: name}.Properties(ctx)
	}
	if err != nil {
		return errors.Wrapf(err, "cannot get properties of %q", name)
	}

	if propsFlags.Json {
		return printJSON(os.Stdout, props)
	}
	return printProperties(os.Stdout, name, props)
}

var TreeCmd = &cli.Subcommand{
	Use:   "tree",
	Short: "show the dataset hierarchy of every pool",
	Run:   doTree,
}

func doTree(ctx context.Context, sc *cli.Subcommand, args []string) error {
	if len(args) > 0 {
		return errors.New("this subcommand takes no positional arguments")
	}
	pools, err := zfs.ListPools(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot list pools")
	}
	poolList := pools.Slice()

	perPool := make([][]zfs.Dataset, len(poolList))
	g, gctx := errgroup.WithContext(ctx)
	for i := range poolList {
		i := i
		g.Go(func() error {
			datasets, err := poolList[i].Datasets(gctx)
			if err != nil {
				return errors.Wrapf(err, "cannot list datasets of pool %q", poolList[i].Name)
			}
			perPool[i] = datasets.Slice()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, p := range poolList {
		fmt.Println(p.Name)
		printTree(os.Stdout, p.Name, perPool[i])
	}
	return nil
}

// printTree prints the descendants of root indented by their depth below it.
func printTree(w io.Writer, root string, datasets []zfs.Dataset) {
	for _, d := range datasets {
		if d.Name == root {
			continue
		}
		rel := strings.TrimPrefix(d.Name, root+"/")
		components := strings.Split(rel, "/")
		depth := len(components)
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), components[depth-1])
	}
}

func printProperties(w io.Writer, subject string, props zfs.PropertyMap) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", subject, k, props[k])
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
