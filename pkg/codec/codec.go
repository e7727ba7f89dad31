// Package codec implements the fixed-width byte encoding used for records,
// composite keys, and the numeric primitives they are built from. Every
// function here is pure and total: given bytes of the right length it
// never fails, and given out-of-range input it returns one of the
// sentinel errors below instead of panicking.
package codec

import (
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
)

// Wire sizes. These mirror the on-disk layout exactly: a record is
// id(10) + rating(4) + votes(4) bytes, a key is rating(4) + id(10).
const (
	IDWidth    = 10
	RatingSize = 4
	VotesSize  = 4
	RecordSize = IDWidth + RatingSize + VotesSize // 18
	KeySize    = RatingSize + IDWidth             // 14
)

var (
	ErrStringTooLong          = errors.New("codec: string exceeds field width")
	ErrInvalidByte            = errors.New("codec: byte value outside [1,255]")
	ErrFloatOutOfRange        = errors.New("codec: rating below 1.0")
	ErrIntegerPartOverflow    = errors.New("codec: integer part exceeds 65535")
	ErrFractionalPartOverflow = errors.New("codec: fractional part exceeds 65535")
)

// EncodeString packs s into a width-byte, zero-padded buffer. Byte value 0
// is reserved as the string terminator, so no input byte may be 0, and no
// input byte may exceed 255 (impossible for a Go string literal, but this
// guards against bytes carried in from raw buffers).
func EncodeString(s string, width int) ([]byte, error) {
	if len(s) > width {
		return nil, ErrStringTooLong
	}
	buf := make([]byte, width)
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == 0 {
			return nil, ErrInvalidByte
		}
		buf[i] = b
	}
	return buf, nil
}

// DecodeString reads bytes until the first zero byte or the end of buf.
func DecodeString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// EncodeUint32 and DecodeUint32 are little-endian, matching every numeric
// field in the on-disk layout.
func EncodeUint32(n uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, n)
	return buf
}

func DecodeUint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// Rating is the split-decimal encoding of a rating value: the integer part
// and the fractional digits exactly as they appeared in the source string
// (e.g. "7.30" -> IntPart=7, FracPart=30; "7.3" -> IntPart=7, FracPart=3).
// This preserves the printed decimal form so that equality comparisons
// between ratings produced from the same ingest format are exact, at the
// cost of losing leading zeros in the fractional part — see DESIGN.md
// Open Question 3.
type Rating struct {
	IntPart  uint16
	FracPart uint16
}

// Less orders ratings the way the composite key comparison requires:
// numerically on the wire representation. This is exact only when every
// rating in the comparison was encoded with the same number of fractional
// digits, which holds for any single ingested dataset.
func (r Rating) Less(o Rating) bool {
	if r.IntPart != o.IntPart {
		return r.IntPart < o.IntPart
	}
	return r.FracPart < o.FracPart
}

func (r Rating) Equal(o Rating) bool {
	return r.IntPart == o.IntPart && r.FracPart == o.FracPart
}

// ParseRating parses a decimal string like "7.3" or "10" into the
// split-decimal wire form, applying the spec's range checks.
func ParseRating(s string) (Rating, error) {
	s = strings.TrimSpace(s)
	intStr, fracStr, hasFrac := strings.Cut(s, ".")

	intVal, err := strconv.ParseUint(intStr, 10, 64)
	if err != nil {
		return Rating{}, ErrFloatOutOfRange
	}
	var fracVal uint64
	if hasFrac && fracStr != "" {
		fracVal, err = strconv.ParseUint(fracStr, 10, 64)
		if err != nil {
			return Rating{}, ErrFloatOutOfRange
		}
	}

	// Reconstruct the numeric value to apply the r < 1.0 floor.
	numeric := float64(intVal)
	if hasFrac && fracStr != "" {
		scale := 1.0
		for i := 0; i < len(fracStr); i++ {
			scale *= 10
		}
		numeric += float64(fracVal) / scale
	}
	if numeric < 1.0 {
		return Rating{}, ErrFloatOutOfRange
	}
	if intVal > 65535 {
		return Rating{}, ErrIntegerPartOverflow
	}
	if fracVal > 65535 {
		return Rating{}, ErrFractionalPartOverflow
	}
	return Rating{IntPart: uint16(intVal), FracPart: uint16(fracVal)}, nil
}

// RatingFromFloat64 formats f in the shortest round-trip decimal form and
// parses it, so that query callers passing a plain float64 (as the engine's
// search/search_range API does) land on the same wire encoding ingest
// would have produced for the same printed value.
func RatingFromFloat64(f float64) (Rating, error) {
	return ParseRating(strconv.FormatFloat(f, 'f', -1, 64))
}

// EncodeRating writes the two little-endian uint16 halves.
func EncodeRating(r Rating) []byte {
	buf := make([]byte, RatingSize)
	binary.LittleEndian.PutUint16(buf[0:2], r.IntPart)
	binary.LittleEndian.PutUint16(buf[2:4], r.FracPart)
	return buf
}

func DecodeRating(buf []byte) Rating {
	return Rating{
		IntPart:  binary.LittleEndian.Uint16(buf[0:2]),
		FracPart: binary.LittleEndian.Uint16(buf[2:4]),
	}
}

// Record is the (id, rating, votes) tuple stored in data blocks.
type Record struct {
	ID     string
	Rating Rating
	Votes  uint32
}

// EncodeRecord lays out [id(10) | rating(4) | votes(4)].
func EncodeRecord(r Record) ([]byte, error) {
	idBuf, err := EncodeString(r.ID, IDWidth)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, RecordSize)
	copy(buf[0:IDWidth], idBuf)
	copy(buf[IDWidth:IDWidth+RatingSize], EncodeRating(r.Rating))
	copy(buf[IDWidth+RatingSize:], EncodeUint32(r.Votes))
	return buf, nil
}

func DecodeRecord(buf []byte) Record {
	return Record{
		ID:     DecodeString(buf[0:IDWidth]),
		Rating: DecodeRating(buf[IDWidth : IDWidth+RatingSize]),
		Votes:  DecodeUint32(buf[IDWidth+RatingSize:]),
	}
}

// Key is the composite (rating, id) ordering key for the B+ tree.
type Key struct {
	Rating Rating
	ID     string
}

// Less implements the key comparison from spec §6: rating numerically,
// then id by byte sequence (Go string comparison is already byte-wise).
func (k Key) Less(o Key) bool {
	if !k.Rating.Equal(o.Rating) {
		return k.Rating.Less(o.Rating)
	}
	return k.ID < o.ID
}

func (k Key) Equal(o Key) bool {
	return k.Rating.Equal(o.Rating) && k.ID == o.ID
}

func (k Key) LessOrEqual(o Key) bool {
	return k.Less(o) || k.Equal(o)
}

// EncodeKey lays out [rating(4) | id(10)].
func EncodeKey(k Key) ([]byte, error) {
	idBuf, err := EncodeString(k.ID, IDWidth)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, KeySize)
	copy(buf[0:RatingSize], EncodeRating(k.Rating))
	copy(buf[RatingSize:], idBuf)
	return buf, nil
}

func DecodeKey(buf []byte) Key {
	return Key{
		Rating: DecodeRating(buf[0:RatingSize]),
		ID:     DecodeString(buf[RatingSize:KeySize]),
	}
}

// maxIDSentinel is a sentinel id used as an upper search bound; it is never
// actually encoded to disk (0xFF bytes would fail EncodeString), it only
// ever participates in in-memory Key comparisons.
const maxIDSentinel = "\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff"

// RatingBounds turns a single rating query into the composite-key range
// search(rating) is defined as, per spec §4.6: [(rating,""), (rating,maxID)].
func RatingBounds(r Rating) (lo, hi Key) {
	return Key{Rating: r, ID: ""}, Key{Rating: r, ID: maxIDSentinel}
}

// Bounds turns a search_range(low, high) query into composite-key bounds,
// the two-rating generalization of RatingBounds.
func Bounds(lo, hi Rating) (loKey, hiKey Key) {
	return Key{Rating: lo, ID: ""}, Key{Rating: hi, ID: maxIDSentinel}
}

// MinKey and MaxKey bound every possible encoded key; they are sentinels
// for full-tree scans (AllPointers) and are never written to disk.
var (
	MinKey = Key{Rating: Rating{IntPart: 0, FracPart: 0}, ID: ""}
	MaxKey = Key{Rating: Rating{IntPart: 65535, FracPart: 65535}, ID: maxIDSentinel}
)

// Pointer identifies a record's location: a data block id plus a byte
// offset within it, or a child/sibling block id with offset 0 when used
// inside an index node. The zero value (0,0) is the "no pointer" sentinel
// since block id 0 is never allocated.
type Pointer struct {
	BlockID uint32
	Offset  uint32
}

// NullPointer is the canonical sentinel value.
var NullPointer = Pointer{}

func (p Pointer) IsNull() bool { return p.BlockID == 0 && p.Offset == 0 }

func EncodePointer(p Pointer) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], p.BlockID)
	binary.LittleEndian.PutUint32(buf[4:8], p.Offset)
	return buf
}

func DecodePointer(buf []byte) Pointer {
	return Pointer{
		BlockID: binary.LittleEndian.Uint32(buf[0:4]),
		Offset:  binary.LittleEndian.Uint32(buf[4:8]),
	}
}
