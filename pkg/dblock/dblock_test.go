package dblock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const blockSize = 500
const recSize = 18

func freshBlock() []byte {
	buf := make([]byte, blockSize)
	Init(buf, 7, recSize)
	return buf
}

func TestInitHeader(t *testing.T) {
	buf := freshBlock()
	require.True(t, IsDataBlock(buf))
	require.Equal(t, uint32(7), BlockID(buf))
	require.Equal(t, uint32(HeaderSize), NextFreeOffset(buf))
	require.Equal(t, uint32(recSize), RecordSize(buf))
}

func TestInsertReadRoundTrip(t *testing.T) {
	buf := freshBlock()
	rec := make([]byte, recSize)
	for i := range rec {
		rec[i] = byte(i + 1)
	}
	off, full, err := InsertRecord(buf, rec)
	require.NoError(t, err)
	require.False(t, full)
	require.Equal(t, uint32(HeaderSize), off)

	got, err := ReadRecord(buf, off)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestInsertUntilFull(t *testing.T) {
	buf := freshBlock()
	capacity := (blockSize - HeaderSize) / recSize
	for i := 0; i < capacity; i++ {
		rec := make([]byte, recSize)
		rec[0] = byte(i + 1)
		_, full, err := InsertRecord(buf, rec)
		require.NoError(t, err)
		require.False(t, full)
	}
	rec := make([]byte, recSize)
	rec[0] = 1
	_, full, err := InsertRecord(buf, rec)
	require.NoError(t, err)
	require.True(t, full)
}

func TestMisalignedOffset(t *testing.T) {
	buf := freshBlock()
	_, err := ReadRecord(buf, HeaderSize+1)
	require.ErrorIs(t, err, ErrMisalignedOffset)
}

func TestOffsetOutOfRange(t *testing.T) {
	buf := freshBlock()
	// First record-aligned offset whose slot would run past the block end.
	_, err := ReadRecord(buf, HeaderSize+(blockSize-HeaderSize)/recSize*recSize)
	require.ErrorIs(t, err, ErrOffsetOutOfRange)
}

func TestDeleteRecordTombstonesAndScanSkipsIt(t *testing.T) {
	buf := freshBlock()
	rec1 := make([]byte, recSize)
	rec1[0] = 'a'
	rec2 := make([]byte, recSize)
	rec2[0] = 'b'
	off1, _, _ := InsertRecord(buf, rec1)
	_, _, _ = InsertRecord(buf, rec2)

	require.NoError(t, DeleteRecord(buf, off1))

	recs := ScanRecords(buf)
	require.Len(t, recs, 1)
	require.Equal(t, rec2, recs[0])
}

func TestScanRecordsDense(t *testing.T) {
	buf := freshBlock()
	want := [][]byte{}
	for i := 0; i < 5; i++ {
		rec := make([]byte, recSize)
		rec[0] = byte('a' + i)
		_, _, _ = InsertRecord(buf, rec)
		want = append(want, rec)
	}
	got := ScanRecords(buf)
	require.Equal(t, want, got)
}

func TestWrongBlockType(t *testing.T) {
	buf := make([]byte, blockSize)
	buf[0] = 3 // leaf tag, not data
	_, _, err := InsertRecord(buf, make([]byte, recSize))
	require.ErrorIs(t, err, ErrWrongBlockType)
}
