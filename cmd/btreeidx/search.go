package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSearchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <rating>",
		Short: "return every record with the given rating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("btreeidx: invalid rating %q: %w", args[0], err)
			}
			store, tree, err := flags.open()
			if err != nil {
				return err
			}
			defer store.Close()

			ptrs, err := tree.Search(rating)
			if err != nil {
				return err
			}
			for _, p := range ptrs {
				rec, err := tree.ResolvePointer(p)
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%d.%d\t%d\n", rec.ID, rec.Rating.IntPart, rec.Rating.FracPart, rec.Votes)
			}
			return nil
		},
	}
}
