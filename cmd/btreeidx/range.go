package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRangeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "range <low> <high>",
		Short: "return every record with low <= rating <= high, in ascending key order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			low, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("btreeidx: invalid low %q: %w", args[0], err)
			}
			high, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("btreeidx: invalid high %q: %w", args[1], err)
			}
			store, tree, err := flags.open()
			if err != nil {
				return err
			}
			defer store.Close()

			ptrs, err := tree.SearchRange(low, high)
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
