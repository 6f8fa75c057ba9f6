package cbor

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"

	"github.com/blinklabs-io/txforge/buffer"
)

// Writer builds canonical CBOR output. Every exported method is
// chainable and panics are never used; construction errors are
// returned from Bytes-producing terminal calls via the Err accessor
// after building, matching the way domain types build nested Writers
// incrementally and bail out on the first error.
type Writer struct {
	buf *buffer.Buffer
	err error
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{buf: buffer.New(64)}
}

// Bytes returns the encoded output so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Err returns the first error encountered while writing, if any.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) raw(b []byte) {
	w.buf.Append(b)
}

// writeHead emits the shortest-possible major-type + argument encoding.
func (w *Writer) writeHead(major byte, arg uint64) {
	m := major << 5
	switch {
	case arg < 24:
		w.buf.WriteUint8(m | byte(arg))
	case arg <= 0xff:
		w.buf.WriteUint8(m | 24)
		w.buf.WriteUint8(uint8(arg))
	case arg <= 0xffff:
		w.buf.WriteUint8(m | 25)
		w.buf.WriteUint16BE(uint16(arg))
	case arg <= 0xffffffff:
		w.buf.WriteUint8(m | 26)
		w.buf.WriteUint32BE(uint32(arg))
	default:
		w.buf.WriteUint8(m | 27)
		w.buf.WriteUint64BE(arg)
	}
}

// Uint writes an unsigned integer (major type 0).
func (w *Writer) Uint(v uint64) *Writer {
	w.writeHead(MajorUnsignedInt, v)
	return w
}

// Int writes a signed integer, choosing major type 0 or 1.
func (w *Writer) Int(v int64) *Writer {
	if v >= 0 {
		return w.Uint(uint64(v))
	}
	w.writeHead(MajorNegativeInt, uint64(-(v + 1)))
	return w
}

// Bignum writes an arbitrary-precision integer using tag 2 (positive) or
// tag 3 (negative), per the Cardano convention for 128-bit asset quantities.
func (w *Writer) Bignum(v *big.Int) *Writer {
	if v == nil {
		w.fail(fmt.Errorf("cbor: nil bignum"))
		return w
	}
	// Fast path: fits in int64, use the shortest integer encoding.
	if v.IsInt64() {
		return w.Int(v.Int64())
	}
	if v.Sign() >= 0 {
		w.writeHead(MajorTag, TagBignumPositive)
		w.Bytes_(v.Bytes())
		return w
	}
	w.writeHead(MajorTag, TagBignumNegative)
	mag := new(big.Int).Sub(new(big.Int).Neg(v), big.NewInt(1))
	w.Bytes_(mag.Bytes())
	return w
}

// Bytes_ writes a byte string, chunking into 64-byte indefinite-length
// segments per Cardano convention when longer than 64 bytes. Named with
// a trailing underscore so it does not collide with the Bytes() method
// that returns the writer's accumulated output.
func (w *Writer) Bytes_(b []byte) *Writer {
	if len(b) <= byteChunkSize {
		w.writeHead(MajorByteString, uint64(len(b)))
		w.raw(b)
		return w
	}
	w.buf.WriteUint8((MajorByteString << 5) | additionalInfoIndefinite)
	for off := 0; off < len(b); off += byteChunkSize {
		end := off + byteChunkSize
		if end > len(b) {
			end = len(b)
		}
		w.writeHead(MajorByteString, uint64(end-off))
		w.raw(b[off:end])
	}
	w.buf.WriteUint8(0xFF)
	return w
}

// Text writes a UTF-8 text string (major type 3), always definite-length.
func (w *Writer) Text(s string) *Writer {
	w.writeHead(MajorTextString, uint64(len(s)))
	w.raw([]byte(s))
	return w
}

// Bool writes a boolean simple value.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		w.buf.WriteUint8(0xf5)
	} else {
		w.buf.WriteUint8(0xf4)
	}
	return w
}

// Null writes the CBOR null simple value.
func (w *Writer) Null() *Writer {
	w.buf.WriteUint8(0xf6)
	return w
}

// HalfFloat writes a value using IEEE 754 half-precision, the only
// floating-point width this codec ever emits (per the canonical-output
// rule restricting floats to half precision for non-integer rationals
// that aren't expressed as a tag-30 fraction).
func (w *Writer) HalfFloat(bits uint16) *Writer {
	w.buf.WriteUint8(0xf9)
	w.buf.WriteUint16BE(bits)
	return w
}

// Rational writes a tag-30 big-rational fraction [numerator, denominator].
func (w *Writer) Rational(num, den int64) *Writer {
	w.writeHead(MajorTag, TagRational)
	w.writeHead(MajorArray, 2)
	w.Int(num)
	w.Int(den)
	return w
}

// ArrayHeader writes a definite-length array head for n items; the caller
// writes exactly n values afterward.
func (w *Writer) ArrayHeader(n int) *Writer {
	w.writeHead(MajorArray, uint64(n))
	return w
}

// MapHeader writes a definite-length map head for n pairs; the caller
// writes exactly n key/value pairs afterward, in canonical order.
func (w *Writer) MapHeader(n int) *Writer {
	w.writeHead(MajorMap, uint64(n))
	return w
}

// TagHeader writes a tag number; the caller writes the tagged content
// immediately afterward.
func (w *Writer) TagHeader(num uint64) *Writer {
	w.writeHead(MajorTag, num)
	return w
}

func (w *Writer) writeIndefArray(items []any) error {
	if len(items) == 0 {
		return w.writeDefiniteArrayValues(items)
	}
	w.buf.WriteUint8((MajorArray << 5) | additionalInfoIndefinite)
	for _, item := range items {
		if err := w.writeValue(item); err != nil {
			return err
		}
	}
	w.buf.WriteUint8(0xFF)
	return nil
}

func (w *Writer) writeDefiniteArrayValues(items []any) error {
	w.ArrayHeader(len(items))
	for _, item := range items {
		if err := w.writeValue(item); err != nil {
			return err
		}
	}
	return nil
}

// writeValue encodes an arbitrary Go value using the canonical rules.
// Supported inputs: nil, bool, all int/uint kinds, *big.Int, []byte,
// string, Marshaler, Tag, RawMessage, ByteString, Constructor,
// IndefLengthList, slices (encoded as arrays), and map[K]V (encoded
// canonically by sorted key bytes).
func (w *Writer) writeValue(v any) error {
	if v == nil {
		w.Null()
		return w.err
	}
	if m, ok := v.(Marshaler); ok {
		enc, err := m.MarshalCBOR()
		if err != nil {
			return err
		}
		w.raw(enc)
		return nil
	}
	switch t := v.(type) {
	case bool:
		w.Bool(t)
		return nil
	case int:
		w.Int(int64(t))
		return nil
	case int8:
		w.Int(int64(t))
		return nil
	case int16:
		w.Int(int64(t))
		return nil
	case int32:
		w.Int(int64(t))
		return nil
	case int64:
		w.Int(t)
		return nil
	case uint:
		w.Uint(uint64(t))
		return nil
	case uint8:
		w.Uint(uint64(t))
		return nil
	case uint16:
		w.Uint(uint64(t))
		return nil
	case uint32:
		w.Uint(uint64(t))
		return nil
	case uint64:
		w.Uint(t)
		return nil
	case *big.Int:
		w.Bignum(t)
		return w.err
	case []byte:
		w.Bytes_(t)
		return nil
	case string:
		w.Text(t)
		return nil
	case IndefLengthList:
		return w.writeIndefArray([]any(t))
	}
	return w.writeReflect(reflect.ValueOf(v))
}

func (w *Writer) writeReflect(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			w.Null()
			return nil
		}
		return w.writeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		items := make([]any, n)
		for i := 0; i < n; i++ {
			items[i] = rv.Index(i).Interface()
		}
		return w.writeDefiniteArrayValues(items)
	case reflect.Map:
		return w.writeCanonicalMap(rv)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
	}
}

// writeCanonicalMap sorts entries by their CBOR-encoded key bytes,
// lexicographically, per the canonical map-key ordering rule.
func (w *Writer) writeCanonicalMap(rv reflect.Value) error {
	type entry struct {
		keyBytes []byte
		valBytes []byte
	}
	keys := rv.MapKeys()
	entries := make([]entry, 0, len(keys))
	for _, k := range keys {
		kw := NewWriter()
		if err := kw.writeValue(k.Interface()); err != nil {
			return err
		}
		vw := NewWriter()
		if err := vw.writeValue(rv.MapIndex(k).Interface()); err != nil {
			return err
		}
		entries = append(entries, entry{keyBytes: kw.Bytes(), valBytes: vw.Bytes()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return lessBytes(entries[i].keyBytes, entries[j].keyBytes)
	})
	w.MapHeader(len(entries))
	for _, e := range entries {
		w.raw(e.keyBytes)
		w.raw(e.valBytes)
	}
	return nil
}

func lessBytes(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Value writes a single arbitrary value using the canonical dispatch
// rules, exposed for callers composing ad-hoc structures (e.g. Plutus
// data field lists) without a dedicated Marshaler.
func (w *Writer) Value(v any) *Writer {
	if err := w.writeValue(v); err != nil {
		w.fail(err)
	}
	return w
}

// Array writes a definite-length array of arbitrary values.
func (w *Writer) Array(items ...any) *Writer {
	if err := w.writeDefiniteArrayValues(items); err != nil {
		w.fail(err)
	}
	return w
}

// SetTagged writes items as an array optionally wrapped in tag 258,
// implementing the "set-typed collections may be wrapped in tag 258"
// rule: the writer emits the tag iff wrapped is true.
func (w *Writer) SetTagged(wrapped bool, items []any) *Writer {
	if wrapped {
		w.TagHeader(TagSet)
	}
	if err := w.writeDefiniteArrayValues(items); err != nil {
		w.fail(err)
	}
	return w
}

// Encode is the package-level convenience entry point: it dispatches on
// v's type and returns the canonical CBOR encoding.
func Encode(v any) ([]byte, error) {
	w := NewWriter()
	if err := w.writeValue(v); err != nil {
		return nil, err
	}
	if w.err != nil {
		return nil, w.err
	}
	return w.Bytes(), nil
}
