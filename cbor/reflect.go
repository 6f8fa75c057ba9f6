package cbor

import (
	"fmt"
	"math/big"
	"reflect"
)

// decodeReflect handles Decode's non-Unmarshaler fallback path: pointers
// to the primitive set Encode understands, plus slices and maps.
func decodeReflect(r *Reader, out any) error {
	switch dst := out.(type) {
	case *bool:
		v, err := r.ReadBool()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	case *string:
		v, err := r.ReadText()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	case *[]byte:
		v, err := r.ReadBytes()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	case *uint64:
		v, err := r.ReadUint()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	case *uint:
		v, err := r.ReadUint()
		if err != nil {
			return err
		}
		*dst = uint(v)
		return nil
	case *int64:
		v, err := r.ReadInt()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	case *int:
		v, err := r.ReadInt()
		if err != nil {
			return err
		}
		*dst = int(v)
		return nil
	case **big.Int:
		v, err := r.ReadBignum()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	case *any:
		v, err := r.readAny()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: Decode target must be a non-nil pointer, got %T", ErrUnsupportedType, out)
	}
	elem := rv.Elem()
	switch elem.Kind() {
	case reflect.Slice:
		length, indefinite, err := r.ReadStartArray()
		if err != nil {
			return err
		}
		if indefinite {
			result := reflect.MakeSlice(elem.Type(), 0, 0)
			for {
				b, peekErr := r.peekByte()
				if peekErr != nil {
					return peekErr
				}
				if b == 0xFF {
					_, _ = r.buf.ReadUint8()
					break
				}
				itemPtr := reflect.New(elem.Type().Elem())
				if err := decodeReflectValue(r, itemPtr); err != nil {
					return err
				}
				result = reflect.Append(result, itemPtr.Elem())
			}
			elem.Set(result)
			return nil
		}
		result := reflect.MakeSlice(elem.Type(), length, length)
		for i := 0; i < length; i++ {
			itemPtr := reflect.New(elem.Type().Elem())
			if err := decodeReflectValue(r, itemPtr); err != nil {
				return err
			}
			result.Index(i).Set(itemPtr.Elem())
		}
		elem.Set(result)
		return nil
	case reflect.Map:
		length, indefinite, err := r.ReadStartMap()
		if err != nil {
			return err
		}
		result := reflect.MakeMap(elem.Type())
		readPair := func() error {
			keyPtr := reflect.New(elem.Type().Key())
			if err := decodeReflectValue(r, keyPtr); err != nil {
				return err
			}
			valPtr := reflect.New(elem.Type().Elem())
			if err := decodeReflectValue(r, valPtr); err != nil {
				return err
			}
			result.SetMapIndex(keyPtr.Elem(), valPtr.Elem())
			return nil
		}
		if indefinite {
			for {
				b, peekErr := r.peekByte()
				if peekErr != nil {
					return peekErr
				}
				if b == 0xFF {
					_, _ = r.buf.ReadUint8()
					break
				}
				if err := readPair(); err != nil {
					return err
				}
			}
		} else {
			for i := 0; i < length; i++ {
				if err := readPair(); err != nil {
					return err
				}
			}
		}
		elem.Set(result)
		return nil
	default:
		return fmt.Errorf("%w: Decode target %s", ErrUnsupportedType, elem.Type())
	}
}

func decodeReflectValue(r *Reader, ptr reflect.Value) error {
	if u, ok := ptr.Interface().(Unmarshaler); ok {
		raw, err := r.ReadEncodedValue()
		if err != nil {
			return err
		}
		return u.UnmarshalCBOR(raw)
	}
	return decodeReflect(r, ptr.Interface())
}
