// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package buffer implements a growable byte container with typed
// little/big-endian readers and writers, used as the substrate for the
// CBOR codec and for hex (de)serialization of domain types.
package buffer

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
)

// ErrInsufficientBuffer is returned when a read would run past the end of
// the buffer, or a destination slice is too small for a safe copy.
var ErrInsufficientBuffer = errors.New("buffer: insufficient buffer")

// growthFactor bounds how aggressively Buffer reallocates on overflow.
const growthFactor = 1.6

// Buffer is a growable byte container with an independent read head.
// The zero value is an empty, usable Buffer.
type Buffer struct {
	data []byte
	pos  int
}

// New creates an empty Buffer with the given initial capacity hint.
func New(capacityHint int) *Buffer {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Buffer{data: make([]byte, 0, capacityHint)}
}

// FromBytes wraps an existing byte slice for reading. The slice is not
// copied; mutating it after wrapping is the caller's responsibility.
func FromBytes(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Bytes returns the full backing slice written so far.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes currently stored.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Remaining returns the number of unread bytes ahead of the read head.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// Pos returns the current read head offset.
func (b *Buffer) Pos() int {
	return b.pos
}

// Seek repositions the read head to an absolute offset.
func (b *Buffer) Seek(pos int) error {
	if pos < 0 || pos > len(b.data) {
		return ErrInsufficientBuffer
	}
	b.pos = pos
	return nil
}

// grow ensures capacity for n additional bytes, expanding by at most
// growthFactor per reallocation.
func (b *Buffer) grow(n int) {
	need := len(b.data) + n
	if need <= cap(b.data) {
		return
	}
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = n
	}
	for newCap < need {
		grown := int(float64(newCap) * growthFactor)
		if grown <= newCap {
			grown = newCap + n
		}
		newCap = grown
	}
	next := make([]byte, len(b.data), newCap)
	copy(next, b.data)
	b.data = next
}

// Push appends a single byte.
func (b *Buffer) Push(v byte) {
	b.grow(1)
	b.data = append(b.data, v)
}

// Append appends the contents of another byte slice.
func (b *Buffer) Append(other []byte) {
	b.grow(len(other))
	b.data = append(b.data, other...)
}

// AppendBuffer appends the written contents of another Buffer.
func (b *Buffer) AppendBuffer(other *Buffer) {
	b.Append(other.Bytes())
}

// Slice returns a view (copy) of the buffer between [start, end).
func (b *Buffer) Slice(start, end int) ([]byte, error) {
	if start < 0 || end > len(b.data) || start > end {
		return nil, ErrInsufficientBuffer
	}
	out := make([]byte, end-start)
	copy(out, b.data[start:end])
	return out, nil
}

// HexEncode returns the hex encoding of the full buffer contents.
func (b *Buffer) HexEncode() string {
	return hex.EncodeToString(b.data)
}

// HexDecode replaces the buffer contents with the bytes decoded from s.
func (b *Buffer) HexDecode(s string) error {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	b.data = decoded
	b.pos = 0
	return nil
}

// SafeCopy copies min(len(src), len(dst)) bytes from src into dst and
// returns the number of bytes copied. It never panics on length mismatch.
func SafeCopy(dst, src []byte) int {
	return copy(dst, src)
}

func (b *Buffer) read(n int) ([]byte, error) {
	if b.Remaining() < n {
		return nil, ErrInsufficientBuffer
	}
	out := b.data[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

// --- typed writers (little-endian) ---

func (b *Buffer) WriteUint8(v uint8) { b.Push(v) }

func (b *Buffer) WriteInt8(v int8) { b.Push(byte(v)) }

func (b *Buffer) WriteUint16LE(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Append(tmp[:])
}

func (b *Buffer) WriteUint16BE(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.Append(tmp[:])
}

func (b *Buffer) WriteInt16LE(v int16) { b.WriteUint16LE(uint16(v)) }
func (b *Buffer) WriteInt16BE(v int16) { b.WriteUint16BE(uint16(v)) }

func (b *Buffer) WriteUint32LE(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Append(tmp[:])
}

func (b *Buffer) WriteUint32BE(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.Append(tmp[:])
}

func (b *Buffer) WriteInt32LE(v int32) { b.WriteUint32LE(uint32(v)) }
func (b *Buffer) WriteInt32BE(v int32) { b.WriteUint32BE(uint32(v)) }

func (b *Buffer) WriteUint64LE(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.Append(tmp[:])
}

func (b *Buffer) WriteUint64BE(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.Append(tmp[:])
}

func (b *Buffer) WriteInt64LE(v int64) { b.WriteUint64LE(uint64(v)) }
func (b *Buffer) WriteInt64BE(v int64) { b.WriteUint64BE(uint64(v)) }

func (b *Buffer) WriteFloat32LE(v float32) {
	b.WriteUint32LE(math.Float32bits(v))
}

func (b *Buffer) WriteFloat64LE(v float64) {
	b.WriteUint64LE(math.Float64bits(v))
}

// --- typed readers ---

func (b *Buffer) ReadUint8() (uint8, error) {
	v, err := b.read(1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func (b *Buffer) ReadInt8() (int8, error) {
	v, err := b.ReadUint8()
	return int8(v), err
}

func (b *Buffer) ReadUint16LE() (uint16, error) {
	v, err := b.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(v), nil
}

func (b *Buffer) ReadUint16BE() (uint16, error) {
	v, err := b.read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(v), nil
}

func (b *Buffer) ReadUint32LE() (uint32, error) {
	v, err := b.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v), nil
}

func (b *Buffer) ReadUint32BE() (uint32, error) {
	v, err := b.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(v), nil
}

func (b *Buffer) ReadUint64LE() (uint64, error) {
	v, err := b.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v), nil
}

func (b *Buffer) ReadUint64BE() (uint64, error) {
	v, err := b.read(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}

// ReadBytes reads and returns a copy of the next n bytes.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	v, err := b.read(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, v)
	return out, nil
}

