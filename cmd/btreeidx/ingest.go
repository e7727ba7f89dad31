package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"btreeidx/internal/ingest"
	"btreeidx/pkg/bptree"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.tsv>",
		Short: "parse a TSV dataset, sort it, and load it into a fresh disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := flags.logger()
			store, err := flags.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			// Splits during insert allocate new blocks through the store's
			// in-memory next-free cursor, which does not survive a reopen
			// (spec §5 draws no transaction/WAL boundary to recover it
			// from). Ingesting into a disk that already holds a tree would
			// silently reissue already-used block ids, so this command
			// only ever runs against a disk it bootstraps itself.
			initialized, err := bptree.IsInitialized(store)
			if err != nil {
				return err
			}
			if initialized {
				return fmt.Errorf("btreeidx: %s already contains a tree; ingest only runs once per disk", flags.diskPath)
			}

			tree, err := bptree.Open(store)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := ingest.Load(f, store, tree, log)
			if err != nil {
				return err
			}
			for _, rej := range report.Rejected {
				log.Warn("rejected row", "line", rej.Line, "err", rej.Err)
			}
			fmt.Printf("inserted %d rows, rejected %d rows\n", report.Inserted, len(report.Rejected))
			return tree.Save()
		},
	}
}
