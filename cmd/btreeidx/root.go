package main

import (
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"btreeidx/pkg/blockstore"
	"btreeidx/pkg/bptree"
)

type rootFlags struct {
	diskPath  string
	blockSize uint32
	diskSize  int64
	verbose   bool
	mem       bool

	memFS afero.Fs // reused by every openStore call in this process when --mem is set
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "btreeidx",
		Short: "disk-backed B+ tree index experiment driver",
	}
	cmd.PersistentFlags().StringVar(&flags.diskPath, "disk", "btreeidx.disk", "path to the simulated disk file")
	cmd.PersistentFlags().Uint32Var(&flags.blockSize, "block-size", blockstore.DefaultBlockSize, "block size in bytes")
	cmd.PersistentFlags().Int64Var(&flags.diskSize, "disk-size", blockstore.DefaultDiskSize, "total simulated disk size in bytes")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.mem, "mem", false, "use an in-memory simulated disk instead of --disk (discarded on exit)")

	cmd.AddCommand(
		newIngestCmd(flags),
		newSearchCmd(flags),
		newRangeCmd(flags),
		newDeleteCmd(flags),
		newStatsCmd(flags),
		newExperimentCmd(flags),
	)
	return cmd
}

func (f *rootFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// openStore opens just the block store, without bootstrapping or
// resuming a tree on it — used by ingest, which needs to check whether
// the disk already holds a tree before deciding whether bptree.Open may
// safely bootstrap one.
func (f *rootFlags) openStore() (*blockstore.Store, error) {
	fs := afero.NewOsFs()
	if f.mem {
		if f.memFS == nil {
			f.memFS = afero.NewMemMapFs()
		}
		fs = f.memFS
	}
	return blockstore.Open(fs, f.diskPath, f.blockSize, f.diskSize)
}

// open returns a block store and B+ tree engine bound to the configured
// disk, bootstrapping a fresh tree if the file is new. Every subcommand
// is a single short-lived process: open, run one operation, close — the
// "construct once at startup, torn down at shutdown" lifecycle of spec §5.
func (f *rootFlags) open() (*blockstore.Store, *bptree.Engine, error) {
	store, err := f.openStore()
	if err != nil {
		return nil, nil, err
	}
	tree, err := bptree.Open(store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, tree, nil
}
