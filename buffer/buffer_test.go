package buffer

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	b := New(0)
	b.WriteUint8(0xAB)
	b.WriteUint16BE(0x1234)
	b.WriteUint32LE(0xDEADBEEF)
	b.WriteUint64BE(0x0102030405060708)

	if got, want := b.HexEncode(), "ab1234efbeadde0102030405060708"; got != want {
		t.Fatalf("hex encode = %s, want %s", got, want)
	}

	v8, err := b.ReadUint8()
	if err != nil || v8 != 0xAB {
		t.Fatalf("ReadUint8 = %v, %v", v8, err)
	}
	v16, err := b.ReadUint16BE()
	if err != nil || v16 != 0x1234 {
		t.Fatalf("ReadUint16BE = %v, %v", v16, err)
	}
	v32, err := b.ReadUint32LE()
	if err != nil || v32 != 0xDEADBEEF {
		t.Fatalf("ReadUint32LE = %v, %v", v32, err)
	}
	v64, err := b.ReadUint64BE()
	if err != nil || v64 != 0x0102030405060708 {
		t.Fatalf("ReadUint64BE = %v, %v", v64, err)
	}
	if b.Remaining() != 0 {
		t.Fatalf("expected no remaining bytes, got %d", b.Remaining())
	}
}

func TestReadPastEndFails(t *testing.T) {
	b := FromBytes([]byte{0x01})
	if _, err := b.ReadUint64LE(); err != ErrInsufficientBuffer {
		t.Fatalf("expected ErrInsufficientBuffer, got %v", err)
	}
}

func TestGrowthAndAppend(t *testing.T) {
	b := New(1)
	for i := 0; i < 100; i++ {
		b.Push(byte(i))
	}
	if b.Len() != 100 {
		t.Fatalf("expected len 100, got %d", b.Len())
	}
	other := New(0)
	other.Append([]byte{0xFF, 0xFE})
	b.AppendBuffer(other)
	if b.Len() != 102 {
		t.Fatalf("expected len 102, got %d", b.Len())
	}
}

func TestHexDecode(t *testing.T) {
	b := New(0)
	if err := b.HexDecode("cafebabe"); err != nil {
		t.Fatalf("HexDecode error: %v", err)
	}
	if b.HexEncode() != "cafebabe" {
		t.Fatalf("round trip mismatch: %s", b.HexEncode())
	}
}

func TestSafeCopyClampsToSmaller(t *testing.T) {
	dst := make([]byte, 2)
	src := []byte{1, 2, 3, 4}
	n := SafeCopy(dst, src)
	if n != 2 {
		t.Fatalf("expected 2 bytes copied, got %d", n)
	}
}
