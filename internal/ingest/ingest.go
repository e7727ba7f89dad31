// Package ingest implements the TSV external collaborator from spec §6:
// it parses a tab-separated file of (id, rating, votes) rows, sorts them
// by (rating, id), and drives the data-block and B+ tree APIs to load
// them, exactly the division of labor spec §2's data-flow paragraph
// assigns to the "external driver" rather than to the engine itself.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"btreeidx/pkg/blockstore"
	"btreeidx/pkg/bptree"
	"btreeidx/pkg/codec"
	"btreeidx/pkg/dblock"
)

// RowError records a single malformed ingest row together with its line
// number, per SPEC_FULL.md §C — input-validation errors (spec §7.1)
// propagate to this boundary instead of aborting the whole ingest.
type RowError struct {
	Line int
	Raw  []string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Report summarizes one ingest run.
type Report struct {
	Inserted int
	Rejected []RowError
}

type rawRow struct {
	line   int
	id     string
	rating string
	votes  uint32
}

// Load parses r as TSV with header row "id\trating\tvotes", sorts the
// valid rows by (rating, id) ascending, and inserts each one: the record
// bytes into the driver's current data block (requesting a fresh one from
// store when full), and the (key, pointer) pair into tree.
func Load(r io.Reader, store *blockstore.Store, tree *bptree.Engine, log *slog.Logger) (Report, error) {
	if log == nil {
		log = slog.Default()
	}
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = 3
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return Report{}, fmt.Errorf("ingest: read header: %w", err)
	}
	if len(header) != 3 || header[0] != "id" || header[1] != "rating" || header[2] != "votes" {
		return Report{}, fmt.Errorf("ingest: unexpected header %v, want [id rating votes]", header)
	}

	var report Report
	var rows []rawRow
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: line, Err: err})
			continue
		}
		votes, verr := strconv.ParseUint(rec[2], 10, 32)
		if verr != nil {
			report.Rejected = append(report.Rejected, RowError{Line: line, Raw: rec, Err: fmt.Errorf("votes: %w", verr)})
			continue
		}
		// Validate id/rating against the codec's own failure modes now, so
		// a bad row is rejected here rather than surfacing later as an
		// internal codec error the engine has no business seeing.
		if _, err := codec.EncodeString(rec[0], codec.IDWidth); err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: line, Raw: rec, Err: err})
			continue
		}
		if _, err := codec.ParseRating(rec[1]); err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: line, Raw: rec, Err: err})
			continue
		}
		rows = append(rows, rawRow{line: line, id: rec[0], rating: rec[1], votes: uint32(votes)})
	}

	sort.Slice(rows, func(i, j int) bool {
		ri, _ := codec.ParseRating(rows[i].rating)
		rj, _ := codec.ParseRating(rows[j].rating)
		if !ri.Equal(rj) {
			return ri.Less(rj)
		}
		return rows[i].id < rows[j].id
	})

	d := &driver{store: store, recordSize: codec.RecordSize, log: log}
	for _, row := range rows {
		rating, err := codec.ParseRating(row.rating)
		if err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: row.line, Err: err})
			continue
		}
		rec := codec.Record{ID: row.id, Rating: rating, Votes: row.votes}
		ptr, err := d.appendRecord(rec)
		if err != nil {
			return report, fmt.Errorf("ingest: write record at line %d: %w", row.line, err)
		}
		key := codec.Key{Rating: rating, ID: row.id}
		if err := tree.Insert(key, ptr); err != nil {
			return report, fmt.Errorf("ingest: insert key at line %d: %w", row.line, err)
		}
		report.Inserted++
	}
	log.Info("ingest complete", "inserted", report.Inserted, "rejected", len(report.Rejected))
	return report, nil
}

// driver owns the "current data block" bookkeeping spec §2 assigns to the
// external collaborator: the B+ tree engine never allocates data blocks
// itself, only index blocks.
type driver struct {
	store      *blockstore.Store
	recordSize uint32
	currentID  uint32
	log        *slog.Logger
}

func (d *driver) appendRecord(rec codec.Record) (codec.Pointer, error) {
	raw, err := codec.EncodeRecord(rec)
	if err != nil {
		return codec.Pointer{}, err
	}

	if d.currentID == 0 {
		if err := d.newDataBlock(); err != nil {
			return codec.Pointer{}, err
		}
	}

	buf, err := d.store.Read(d.currentID)
	if err != nil {
		return codec.Pointer{}, err
	}
	off, full, err := dblock.InsertRecord(buf, raw)
	if err != nil {
		return codec.Pointer{}, err
	}
	if full {
		if err := d.newDataBlock(); err != nil {
			return codec.Pointer{}, err
		}
		buf, err = d.store.Read(d.currentID)
		if err != nil {
			return codec.Pointer{}, err
		}
		off, full, err = dblock.InsertRecord(buf, raw)
		if err != nil {
			return codec.Pointer{}, err
		}
		if full {
			return codec.Pointer{}, fmt.Errorf("ingest: record does not fit in an empty data block")
		}
	}
	if err := d.store.Write(d.currentID, buf); err != nil {
		return codec.Pointer{}, err
	}
	return codec.Pointer{BlockID: d.currentID, Offset: off}, nil
}

func (d *driver) newDataBlock() error {
	id, err := d.store.Allocate()
	if err != nil {
		return err
	}
	buf, err := d.store.Read(id)
	if err != nil {
		return err
	}
	dblock.Init(buf, id, d.recordSize)
	if err := d.store.Write(id, buf); err != nil {
		return err
	}
	d.currentID = id
	d.log.Debug("allocated data block", "block_id", id)
	return nil
}
