package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "print height, node counts, and block-store occupancy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, tree, err := flags.open()
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := tree.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("height:           %d\n", s.Height)
			fmt.Printf("num_nodes:        %d\n", s.NumNodes)
			fmt.Printf("num_leaves:       %d\n", s.NumLeaves)
			fmt.Printf("blocks used:      %d\n", s.NumBlocksUsed)
			fmt.Printf("blocks free:      %d\n", s.NumBlocksFree)
			fmt.Printf("merges:           %d\n", s.Merges)
			fmt.Printf("nodes deleted:    %d\n", s.NodesDeleted)
			return nil
		},
	}
}
