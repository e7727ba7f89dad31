package codec

import "testing"

func TestStringRoundTrip(t *testing.T) {
	buf, err := EncodeString("abc", 10)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := DecodeString(buf); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestStringTooLong(t *testing.T) {
	if _, err := EncodeString("01234567890", 10); err != ErrStringTooLong {
		t.Fatalf("expected ErrStringTooLong, got %v", err)
	}
}

func TestStringInvalidByte(t *testing.T) {
	if _, err := EncodeString("a\x00b", 10); err != ErrInvalidByte {
		t.Fatalf("expected ErrInvalidByte, got %v", err)
	}
}

func TestUint32RoundTrip(t *testing.T) {
	buf := EncodeUint32(123456789)
	if DecodeUint32(buf) != 123456789 {
		t.Fatalf("round trip failed")
	}
}

func TestParseRatingRoundTrip(t *testing.T) {
	cases := []struct {
		in       string
		intPart  uint16
		fracPart uint16
	}{
		{"7.3", 7, 3},
		{"7.30", 7, 30},
		{"10", 10, 0},
		{"1.0", 1, 0},
	}
	for _, c := range cases {
		r, err := ParseRating(c.in)
		if err != nil {
			t.Fatalf("ParseRating(%q): %v", c.in, err)
		}
		if r.IntPart != c.intPart || r.FracPart != c.fracPart {
			t.Fatalf("ParseRating(%q) = %+v, want {%d %d}", c.in, r, c.intPart, c.fracPart)
		}
		buf := EncodeRating(r)
		if got := DecodeRating(buf); got != r {
			t.Fatalf("rating wire round trip: got %+v want %+v", got, r)
		}
	}
}

func TestParseRatingOutOfRange(t *testing.T) {
	if _, err := ParseRating("0.5"); err != ErrFloatOutOfRange {
		t.Fatalf("expected ErrFloatOutOfRange, got %v", err)
	}
}

func TestParseRatingIntegerOverflow(t *testing.T) {
	if _, err := ParseRating("70000"); err != ErrIntegerPartOverflow {
		t.Fatalf("expected ErrIntegerPartOverflow, got %v", err)
	}
}

func TestParseRatingFractionalOverflow(t *testing.T) {
	if _, err := ParseRating("7.700000"); err != ErrFractionalPartOverflow {
		t.Fatalf("expected ErrFractionalPartOverflow, got %v", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	r := Record{ID: "tt0111161", Rating: Rating{IntPart: 9, FracPart: 3}, Votes: 2500000}
	buf, err := EncodeRecord(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buf) != RecordSize {
		t.Fatalf("wrong size: %d", len(buf))
	}
	got := DecodeRecord(buf)
	if got != r {
		t.Fatalf("got %+v want %+v", got, r)
	}
}

func TestKeyRoundTrip(t *testing.T) {
	k := Key{Rating: Rating{IntPart: 8, FracPart: 1}, ID: "abc"}
	buf, err := EncodeKey(k)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buf) != KeySize {
		t.Fatalf("wrong size: %d", len(buf))
	}
	got := DecodeKey(buf)
	if got != k {
		t.Fatalf("got %+v want %+v", got, k)
	}
}

func TestKeyOrdering(t *testing.T) {
	a := Key{Rating: Rating{IntPart: 1}, ID: "b"}
	b := Key{Rating: Rating{IntPart: 5}, ID: "a"}
	if !a.Less(b) {
		t.Fatalf("expected %+v < %+v", a, b)
	}
	c := Key{Rating: Rating{IntPart: 5}, ID: "z"}
	if !b.Less(c) {
		t.Fatalf("expected %+v < %+v (same rating, id order)", b, c)
	}
}

func TestBoundsOrdering(t *testing.T) {
	lo, hi := Bounds(Rating{IntPart: 7}, Rating{IntPart: 9})
	if !lo.Less(hi) {
		t.Fatalf("expected lo %+v < hi %+v", lo, hi)
	}
	mid := Key{Rating: Rating{IntPart: 8}, ID: "tt0111161"}
	if !lo.LessOrEqual(mid) || !mid.LessOrEqual(hi) {
		t.Fatalf("expected lo <= mid <= hi, got lo=%+v mid=%+v hi=%+v", lo, mid, hi)
	}
}

func TestMinMaxKeySpanEverything(t *testing.T) {
	k := Key{Rating: Rating{IntPart: 5, FracPart: 5}, ID: "anything"}
	if !MinKey.LessOrEqual(k) || !k.LessOrEqual(MaxKey) {
		t.Fatalf("expected MinKey <= %+v <= MaxKey", k)
	}
	if !MinKey.Less(MaxKey) {
		t.Fatalf("expected MinKey < MaxKey")
	}
}

func TestPointerNull(t *testing.T) {
	if !NullPointer.IsNull() {
		t.Fatalf("NullPointer should be null")
	}
	p := Pointer{BlockID: 1, Offset: 17}
	buf := EncodePointer(p)
	if got := DecodePointer(buf); got != p {
		t.Fatalf("got %+v want %+v", got, p)
	}
}
