package cbor

import (
	"bytes"
	"math/big"
	"testing"
)

func TestIntegerShortestEncoding(t *testing.T) {
	cases := []struct {
		v    int64
		want string
	}{
		{0, "00"},
		{23, "17"},
		{24, "1818"},
		{255, "18ff"},
		{256, "190100"},
		{-1, "20"},
		{-24, "37"},
		{-25, "3818"},
	}
	for _, c := range cases {
		enc, err := Encode(c.v)
		if err != nil {
			t.Fatalf("encode %d: %v", c.v, err)
		}
		if got := hexOf(enc); got != c.want {
			t.Errorf("encode(%d) = %s, want %s", c.v, got, c.want)
		}
		var back int64
		if _, err := Decode(enc, &back); err != nil {
			t.Fatalf("decode %d: %v", c.v, err)
		}
		if back != c.v {
			t.Errorf("round trip %d -> %d", c.v, back)
		}
	}
}

func TestCanonicalMapKeyOrdering(t *testing.T) {
	m := map[uint64]string{3: "c", 1: "a", 2: "b"}
	enc, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	// Map header (a3) then keys 01, 02, 03 in order.
	want := []byte{0xa3, 0x01, 0x61, 'a', 0x02, 0x61, 'b', 0x03, 0x61, 'c'}
	if !bytes.Equal(enc, want) {
		t.Errorf("got % x, want % x", enc, want)
	}
}

func TestBignumRoundTrip(t *testing.T) {
	big128, _ := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	enc, err := Encode(big128)
	if err != nil {
		t.Fatal(err)
	}
	var back *big.Int
	if _, err := Decode(enc, &back); err != nil {
		t.Fatal(err)
	}
	if back.Cmp(big128) != 0 {
		t.Errorf("round trip mismatch: got %s want %s", back, big128)
	}
}

func TestByteStringChunking(t *testing.T) {
	data := make([]byte, 130)
	for i := range data {
		data[i] = byte(i)
	}
	enc, err := Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	if enc[0] != (MajorByteString<<5)|additionalInfoIndefinite {
		t.Fatalf("expected indefinite byte string head, got %#x", enc[0])
	}
	var back []byte
	if _, err := Decode(enc, &back); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("round trip mismatch")
	}
}

func TestConstructorRoundTrip(t *testing.T) {
	c := NewConstructor(0, IndefLengthList{uint64(1), []byte{0xde, 0xad}})
	enc, err := c.MarshalCBOR()
	if err != nil {
		t.Fatal(err)
	}
	var back Constructor
	if err := back.UnmarshalCBOR(enc); err != nil {
		t.Fatal(err)
	}
	if back.Index != 0 || len(back.Fields) != 2 {
		t.Fatalf("unexpected decode: %+v", back)
	}
}

func TestSetTag258(t *testing.T) {
	w := NewWriter()
	w.SetTagged(true, []any{uint64(1), uint64(2)})
	enc := w.Bytes()
	r := NewReader(enc)
	tag, err := r.ReadTag()
	if err != nil || tag != TagSet {
		t.Fatalf("expected tag 258, got %d err %v", tag, err)
	}
}

func hexOf(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0xf]
	}
	return string(out)
}
