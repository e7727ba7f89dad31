package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"btreeidx/pkg/bptree"
)

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rating>",
		Short: "delete every record with the given rating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("btreeidx: invalid rating %q: %w", args[0], err)
			}
			// Borrow/merge only ever deallocates blocks, never allocates
			// new ones, so unlike ingest this is safe to run against a
			// tree bootstrapped by a previous process invocation.
			store, tree, err := flags.open()
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := tree.Delete(rating)
			if err != nil && err != bptree.ErrNotFound {
				return err
			}
			fmt.Printf("deleted %d rows\n", count)
			return tree.Save()
		},
	}
}
