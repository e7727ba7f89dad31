package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"btreeidx/internal/ingest"
	"btreeidx/pkg/bptree"
)

// newExperimentCmd implements the "Experiment driver" external
// collaborator from spec §6 as a single command: ingest, then
// search(8.0), search_range(7.0, 9.0), delete(7.0), then report
// height()/num_nodes()/the current root snapshot. Running it all within
// one process sidesteps the cross-process allocation-cursor limitation
// that makes a standalone ingest-then-mutate sequence unsafe (see
// DESIGN.md) — this is the one command allowed to both ingest and later
// mutate the same store.
func newExperimentCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "experiment <file.tsv>",
		Short: "run the canonical ingest/search/range/delete experiment against a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := flags.logger()
			store, tree, err := flags.open()
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			start := time.Now()
			report, err := ingest.Load(f, store, tree, log)
			_ = f.Close()
			if err != nil {
				return err
			}
			fmt.Printf("ingest: %d rows in %s (%d rejected)\n", report.Inserted, time.Since(start), len(report.Rejected))

			eightPtrs, err := tree.Search(8.0)
			if err != nil {
				return err
			}
			fmt.Printf("search(8.0): %d rows\n", len(eightPtrs))

			rangePtrs, err := tree.SearchRange(7.0, 9.0)
			if err != nil {
				return err
			}
			fmt.Printf("search_range(7.0, 9.0): %d rows\n", len(rangePtrs))

			deleted, err := tree.Delete(7.0)
			if err != nil && err != bptree.ErrNotFound {
				return err
			}
			fmt.Printf("delete(7.0): %d rows\n", deleted)

			stats, err := tree.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("height: %d\n", stats.Height)
			fmt.Printf("num_nodes: %d\n", stats.NumNodes)
			fmt.Printf("root snapshot: %d nodes, %d leaves, %d blocks used\n", stats.NumNodes, stats.NumLeaves, stats.NumBlocksUsed)

			return tree.Save()
		},
	}
}
