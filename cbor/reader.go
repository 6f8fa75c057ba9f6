package cbor

import (
	"fmt"
	"math/big"

	"github.com/blinklabs-io/txforge/buffer"
)

// Reader decodes CBOR bytes. Both definite- and indefinite-length
// containers are accepted, per the reader contract in the design.
type Reader struct {
	buf *buffer.Buffer
}

// NewReader wraps data for decoding. The slice is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{buf: buffer.FromBytes(data)}
}

// Pos returns the current read offset, useful for callers that need to
// know how many bytes a value consumed.
func (r *Reader) Pos() int { return r.buf.Pos() }

// Remaining reports unread bytes.
func (r *Reader) Remaining() int { return r.buf.Remaining() }

func (r *Reader) peekByte() (byte, error) {
	if r.buf.Remaining() < 1 {
		return 0, ErrInsufficientBuffer
	}
	b := r.buf.Bytes()[r.buf.Pos()]
	return b, nil
}

// PeekMajorType returns the major type of the next value without
// consuming it.
func (r *Reader) PeekMajorType() (byte, error) {
	b, err := r.peekByte()
	if err != nil {
		return 0, err
	}
	return b >> 5, nil
}

// readHead reads a major-type head byte and its argument, returning the
// major type, the argument value, and whether additional info signalled
// an indefinite-length container (additional info 31).
func (r *Reader) readHead() (major byte, arg uint64, indefinite bool, err error) {
	head, err := r.buf.ReadUint8()
	if err != nil {
		return 0, 0, false, ErrInsufficientBuffer
	}
	major = head >> 5
	info := head & 0x1f
	switch {
	case info < 24:
		return major, uint64(info), false, nil
	case info == 24:
		v, err := r.buf.ReadUint8()
		if err != nil {
			return 0, 0, false, ErrInsufficientBuffer
		}
		return major, uint64(v), false, nil
	case info == 25:
		v, err := r.buf.ReadUint16BE()
		if err != nil {
			return 0, 0, false, ErrInsufficientBuffer
		}
		return major, uint64(v), false, nil
	case info == 26:
		v, err := r.buf.ReadUint32BE()
		if err != nil {
			return 0, 0, false, ErrInsufficientBuffer
		}
		return major, uint64(v), false, nil
	case info == 27:
		v, err := r.buf.ReadUint64BE()
		if err != nil {
			return 0, 0, false, ErrInsufficientBuffer
		}
		return major, v, false, nil
	case info == additionalInfoIndefinite:
		return major, 0, true, nil
	default:
		return 0, 0, false, ErrMalformed
	}
}

// ReadUint reads an unsigned integer (major type 0).
func (r *Reader) ReadUint() (uint64, error) {
	major, arg, _, err := r.readHead()
	if err != nil {
		return 0, err
	}
	if major != MajorUnsignedInt {
		return 0, NewShapeError("uint", ErrUnexpectedMajorType)
	}
	return arg, nil
}

// ReadInt reads a signed integer (major type 0 or 1).
func (r *Reader) ReadInt() (int64, error) {
	major, arg, _, err := r.readHead()
	if err != nil {
		return 0, err
	}
	switch major {
	case MajorUnsignedInt:
		return int64(arg), nil
	case MajorNegativeInt:
		return -1 - int64(arg), nil
	default:
		return 0, NewShapeError("int", ErrUnexpectedMajorType)
	}
}

// ReadBignum reads an unsigned/negative integer, a tag-2/tag-3 bignum, or
// falls back to a plain integer, always returning a *big.Int.
func (r *Reader) ReadBignum() (*big.Int, error) {
	mt, err := r.PeekMajorType()
	if err != nil {
		return nil, err
	}
	if mt == MajorTag {
		save := r.buf.Pos()
		tag, err := r.ReadTag()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagBignumPositive, TagBignumNegative:
			b, err := r.ReadBytes()
			if err != nil {
				return nil, err
			}
			mag := new(big.Int).SetBytes(b)
			if tag == TagBignumNegative {
				mag.Neg(mag)
				mag.Sub(mag, big.NewInt(1))
			}
			return mag, nil
		default:
			if err := r.buf.Seek(save); err != nil {
				return nil, err
			}
		}
	}
	v, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	return big.NewInt(v), nil
}

// ReadBytes reads a byte string, transparently reassembling an
// indefinite-length chunked byte string into a single slice.
func (r *Reader) ReadBytes() ([]byte, error) {
	major, arg, indefinite, err := r.readHead()
	if err != nil {
		return nil, err
	}
	if major != MajorByteString {
		return nil, NewShapeError("bytes", ErrUnexpectedMajorType)
	}
	if !indefinite {
		return r.buf.ReadBytes(int(arg))
	}
	var out []byte
	for {
		b, err := r.peekByte()
		if err != nil {
			return nil, err
		}
		if b == 0xFF {
			_, _ = r.buf.ReadUint8()
			break
		}
		cmajor, clen, cindef, err := r.readHead()
		if err != nil {
			return nil, err
		}
		if cmajor != MajorByteString || cindef {
			return nil, NewShapeError("bytes chunk", ErrMalformed)
		}
		chunk, err := r.buf.ReadBytes(int(clen))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// ReadText reads a UTF-8 text string.
func (r *Reader) ReadText() (string, error) {
	major, arg, indefinite, err := r.readHead()
	if err != nil {
		return "", err
	}
	if major != MajorTextString {
		return "", NewShapeError("text", ErrUnexpectedMajorType)
	}
	if indefinite {
		var out []byte
		for {
			b, err := r.peekByte()
			if err != nil {
				return "", err
			}
			if b == 0xFF {
				_, _ = r.buf.ReadUint8()
				break
			}
			cmajor, clen, cindef, err := r.readHead()
			if err != nil {
				return "", err
			}
			if cmajor != MajorTextString || cindef {
				return "", NewShapeError("text chunk", ErrMalformed)
			}
			chunk, err := r.buf.ReadBytes(int(clen))
			if err != nil {
				return "", err
			}
			out = append(out, chunk...)
		}
		return string(out), nil
	}
	b, err := r.buf.ReadBytes(int(arg))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBool reads a boolean simple value.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.buf.ReadUint8()
	if err != nil {
		return false, ErrInsufficientBuffer
	}
	switch b {
	case 0xf4:
		return false, nil
	case 0xf5:
		return true, nil
	default:
		return false, NewShapeError("bool", ErrUnexpectedMajorType)
	}
}

// ReadNull consumes a null simple value.
func (r *Reader) ReadNull() error {
	b, err := r.buf.ReadUint8()
	if err != nil {
		return ErrInsufficientBuffer
	}
	if b != 0xf6 {
		return NewShapeError("null", ErrUnexpectedMajorType)
	}
	return nil
}

// IsNull reports (without consuming) whether the next byte is the null
// simple value.
func (r *Reader) IsNull() bool {
	b, err := r.peekByte()
	return err == nil && b == 0xf6
}

// IsBreak reports (without consuming) whether the next byte is the
// break stop-code terminating an indefinite-length array, map, or
// chunked string. Callers decoding an indefinite-length container one
// element at a time check this before each element.
func (r *Reader) IsBreak() bool {
	b, err := r.peekByte()
	return err == nil && b == 0xFF
}

// ReadBreak consumes the break stop-code. Call only after IsBreak
// reports true.
func (r *Reader) ReadBreak() error {
	b, err := r.buf.ReadUint8()
	if err != nil {
		return ErrInsufficientBuffer
	}
	if b != 0xFF {
		return NewShapeError("break", ErrUnexpectedMajorType)
	}
	return nil
}

// ReadTag reads a tag number (major type 6).
func (r *Reader) ReadTag() (uint64, error) {
	major, arg, _, err := r.readHead()
	if err != nil {
		return 0, err
	}
	if major != MajorTag {
		return 0, NewShapeError("tag", ErrUnexpectedMajorType)
	}
	return arg, nil
}

// ValidateTag reads a tag and confirms it matches want.
func (r *Reader) ValidateTag(want uint64) error {
	got, err := r.ReadTag()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: got %d, want %d", ErrUnexpectedTag, got, want)
	}
	return nil
}

// ReadStartArray reads an array head, returning its length, or -1 for an
// indefinite-length array.
func (r *Reader) ReadStartArray() (length int, indefinite bool, err error) {
	major, arg, indef, err := r.readHead()
	if err != nil {
		return 0, false, err
	}
	if major != MajorArray {
		return 0, false, NewShapeError("array", ErrUnexpectedMajorType)
	}
	if indef {
		return -1, true, nil
	}
	return int(arg), false, nil
}

// ReadEndArray consumes the break byte terminating an indefinite-length
// array. It is a no-op (but validates) for definite-length arrays, whose
// caller already knows the element count.
func (r *Reader) ReadEndArray() error {
	if r.buf.Remaining() == 0 {
		return nil
	}
	b, err := r.peekByte()
	if err != nil {
		return err
	}
	if b == 0xFF {
		_, _ = r.buf.ReadUint8()
	}
	return nil
}

// ValidateArrayOfN reads an array head and confirms it has exactly n
// elements (definite-length only).
func (r *Reader) ValidateArrayOfN(production string, n int) error {
	length, indef, err := r.ReadStartArray()
	if err != nil {
		return NewShapeError(production, err)
	}
	if indef || length != n {
		return NewShapeError(production, ErrArrayLength)
	}
	return nil
}

// ReadStartMap reads a map head, returning its pair count, or -1 for
// indefinite length.
func (r *Reader) ReadStartMap() (length int, indefinite bool, err error) {
	major, arg, indef, err := r.readHead()
	if err != nil {
		return 0, false, err
	}
	if major != MajorMap {
		return 0, false, NewShapeError("map", ErrUnexpectedMajorType)
	}
	if indef {
		return -1, true, nil
	}
	return int(arg), false, nil
}

// ValidateMapOfN reads a map head and confirms it has exactly n pairs.
func (r *Reader) ValidateMapOfN(production string, n int) error {
	length, indef, err := r.ReadStartMap()
	if err != nil {
		return NewShapeError(production, err)
	}
	if indef || length != n {
		return NewShapeError(production, ErrMapLength)
	}
	return nil
}

// ValidateEndArray is an alias for ReadEndArray naming the calling
// production on failure, matching the validate_end_array contract.
func (r *Reader) ValidateEndArray(production string) error {
	if err := r.ReadEndArray(); err != nil {
		return NewShapeError(production, err)
	}
	return nil
}

// ReadEncodedValue reads the next well-formed value and returns its raw
// CBOR bytes, unparsed, for structural pass-through.
func (r *Reader) ReadEncodedValue() ([]byte, error) {
	start := r.buf.Pos()
	if err := r.skipValue(); err != nil {
		return nil, err
	}
	return r.buf.Slice(start, r.buf.Pos())
}

func (r *Reader) skipValue() error {
	major, arg, indefinite, err := r.readHead()
	if err != nil {
		return err
	}
	switch major {
	case MajorUnsignedInt, MajorNegativeInt:
		return nil
	case MajorByteString, MajorTextString:
		if !indefinite {
			_, err := r.buf.ReadBytes(int(arg))
			return err
		}
		for {
			b, err := r.peekByte()
			if err != nil {
				return err
			}
			if b == 0xFF {
				_, _ = r.buf.ReadUint8()
				return nil
			}
			if err := r.skipValue(); err != nil {
				return err
			}
		}
	case MajorArray:
		if indefinite {
			for {
				b, err := r.peekByte()
				if err != nil {
					return err
				}
				if b == 0xFF {
					_, _ = r.buf.ReadUint8()
					return nil
				}
				if err := r.skipValue(); err != nil {
					return err
				}
			}
		}
		for i := uint64(0); i < arg; i++ {
			if err := r.skipValue(); err != nil {
				return err
			}
		}
		return nil
	case MajorMap:
		if indefinite {
			for {
				b, err := r.peekByte()
				if err != nil {
					return err
				}
				if b == 0xFF {
					_, _ = r.buf.ReadUint8()
					return nil
				}
				if err := r.skipValue(); err != nil {
					return err
				}
				if err := r.skipValue(); err != nil {
					return err
				}
			}
		}
		for i := uint64(0); i < arg; i++ {
			if err := r.skipValue(); err != nil {
				return err
			}
			if err := r.skipValue(); err != nil {
				return err
			}
		}
		return nil
	case MajorTag:
		return r.skipValue()
	case MajorSimpleFloat:
		return r.skipSimpleFloatArgs(arg, indefinite)
	default:
		return ErrMalformed
	}
}

// skipSimpleFloatArgs handles the already-consumed head for major type 7;
// readHead has consumed any 1/2/4/8-byte argument already when info>=24,
// except for the half/single/double float cases which readHead treats the
// same way (argument width by info value), so there is nothing left to
// skip here.
func (r *Reader) skipSimpleFloatArgs(_ uint64, _ bool) error {
	return nil
}

// readAnyArray decodes a definite- or indefinite-length array into a
// generic []any, used by Constructor and other loosely-typed field lists.
func (r *Reader) readAnyArray() ([]any, error) {
	length, indefinite, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	var out []any
	if indefinite {
		for {
			b, err := r.peekByte()
			if err != nil {
				return nil, err
			}
			if b == 0xFF {
				_, _ = r.buf.ReadUint8()
				break
			}
			v, err := r.readAny()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	out = make([]any, 0, length)
	for i := 0; i < length; i++ {
		v, err := r.readAny()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// readAny decodes the next value into a best-effort generic Go
// representation: uint64/int64 for integers, []byte for byte strings,
// string for text, []any for arrays, map[string]any for maps (keyed by
// the key's raw encoded CBOR bytes as a string, for every key type),
// bool, nil, or a raw Tag/Constructor for tagged values.
func (r *Reader) readAny() (any, error) {
	major, err := r.PeekMajorType()
	if err != nil {
		return nil, err
	}
	switch major {
	case MajorUnsignedInt:
		return r.ReadUint()
	case MajorNegativeInt:
		return r.ReadInt()
	case MajorByteString:
		return r.ReadBytes()
	case MajorTextString:
		return r.ReadText()
	case MajorArray:
		return r.readAnyArray()
	case MajorMap:
		return r.readAnyMap()
	case MajorTag:
		save := r.buf.Pos()
		tag, err := r.ReadTag()
		if err != nil {
			return nil, err
		}
		if idx, ok := constructorIndexForTag(tag); ok {
			fields, err := r.readAnyArray()
			if err != nil {
				return nil, err
			}
			return Constructor{Index: idx, Fields: fields}, nil
		}
		if err := r.buf.Seek(save); err != nil {
			return nil, err
		}
		var t Tag
		raw, err := r.ReadEncodedValue()
		if err != nil {
			return nil, err
		}
		if err := t.UnmarshalCBOR(raw); err != nil {
			return nil, err
		}
		return t, nil
	case MajorSimpleFloat:
		b, err := r.peekByte()
		if err != nil {
			return nil, err
		}
		switch b {
		case 0xf4, 0xf5:
			return r.ReadBool()
		case 0xf6, 0xf7:
			_, _ = r.buf.ReadUint8()
			return nil, nil
		default:
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return nil, err
			}
			return RawMessage(raw), nil
		}
	default:
		return nil, ErrMalformed
	}
}

func (r *Reader) readAnyMap() (map[string]any, error) {
	length, indefinite, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	readPair := func() error {
		kRaw, err := r.ReadEncodedValue()
		if err != nil {
			return err
		}
		v, err := r.readAny()
		if err != nil {
			return err
		}
		out[string(kRaw)] = v
		return nil
	}
	if indefinite {
		for {
			b, err := r.peekByte()
			if err != nil {
				return nil, err
			}
			if b == 0xFF {
				_, _ = r.buf.ReadUint8()
				break
			}
			if err := readPair(); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	for i := 0; i < length; i++ {
		if err := readPair(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Decode is the package-level convenience entry point. If out implements
// Unmarshaler, its UnmarshalCBOR is invoked with the next encoded value's
// raw bytes. Otherwise Decode supports pointers to the same primitive set
// Encode supports. It returns the number of bytes consumed from data.
func Decode(data []byte, out any) (int, error) {
	r := NewReader(data)
	if u, ok := out.(Unmarshaler); ok {
		raw, err := r.ReadEncodedValue()
		if err != nil {
			return 0, err
		}
		if err := u.UnmarshalCBOR(raw); err != nil {
			return 0, err
		}
		return r.Pos(), nil
	}
	if err := decodeReflect(r, out); err != nil {
		return 0, err
	}
	return r.Pos(), nil
}

// DecodeGeneric decodes data (typically a Constructor's FieldsCbor output)
// into a destination struct whose exported fields are Unmarshaler-capable
// pointers supplied positionally via a small set of decode targets; for
// this codebase every domain type instead decodes its own field list
// manually (see ledger package), so DecodeGeneric only needs to support
// decoding into a *[]RawMessage of the top-level array elements.
func DecodeGeneric(data []byte, out any) error {
	switch dst := out.(type) {
	case *[]RawMessage:
		r := NewReader(data)
		length, indefinite, err := r.ReadStartArray()
		if err != nil {
			return err
		}
		var items []RawMessage
		if indefinite {
			for {
				b, err := r.peekByte()
				if err != nil {
					return err
				}
				if b == 0xFF {
					_, _ = r.buf.ReadUint8()
					break
				}
				raw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				items = append(items, RawMessage(raw))
			}
		} else {
			for i := 0; i < length; i++ {
				raw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				items = append(items, RawMessage(raw))
			}
		}
		*dst = items
		return nil
	case Unmarshaler:
		return dst.UnmarshalCBOR(data)
	default:
		return fmt.Errorf("%w: DecodeGeneric target %T", ErrUnsupportedType, out)
	}
}
