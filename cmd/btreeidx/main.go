// Command btreeidx is the experiment driver from spec §6: it ingests a
// TSV dataset into a disk-backed B+ tree index and runs point/range
// lookups and deletes against it.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
