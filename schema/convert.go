package schema

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"
)

// DateTimeLayout is the layout date/time values are written with.
const DateTimeLayout = "2006-01-02 15:04:05"

// Convert converts a raw driver value to typ. A nil value yields the zero
// value of typ.
func Convert(v any, typ reflect.Type) (any, error) {
	rv, err := convert(v, typ)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func convert(v any, typ reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(typ), nil
	}

	src := reflect.ValueOf(v)
	if src.Type() == typ {
		return src, nil
	}

	if typ.Kind() == reflect.Pointer && !src.Type().AssignableTo(typ) {
		elem, err := convert(v, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	var (
		out any
		err error
	)
	switch typ {
	case timeType:
		out, err = toTime(v)
	case boolType:
		out, err = cast.ToBoolE(v)
	default:
		switch typ.Kind() {
		case reflect.String:
			out, err = cast.ToStringE(v)
		case reflect.Int:
			out, err = cast.ToIntE(v)
		case reflect.Int8:
			out, err = cast.ToInt8E(v)
		case reflect.Int16:
			out, err = cast.ToInt16E(v)
		case reflect.Int32:
			out, err = cast.ToInt32E(v)
		case reflect.Int64:
			out, err = cast.ToInt64E(v)
		case reflect.Uint:
			out, err = cast.ToUintE(v)
		case reflect.Uint8:
			out, err = cast.ToUint8E(v)
		case reflect.Uint16:
			out, err = cast.ToUint16E(v)
		case reflect.Uint32:
			out, err = cast.ToUint32E(v)
		case reflect.Uint64:
			out, err = cast.ToUint64E(v)
		case reflect.Float32:
			out, err = cast.ToFloat32E(v)
		case reflect.Float64:
			out, err = cast.ToFloat64E(v)
		default:
			return assign(src, typ)
		}
	}
	if err != nil {
		return reflect.Value{}, err
	}

	res := reflect.ValueOf(out)
	if res.Type() != typ {
		// named types such as `type Status string`
		if !res.Type().ConvertibleTo(typ) {
			return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", v, typ)
		}
		res = res.Convert(typ)
	}
	return res, nil
}

func assign(src reflect.Value, typ reflect.Type) (reflect.Value, error) {
	if src.Type().AssignableTo(typ) {
		dst := reflect.New(typ).Elem()
		dst.Set(src)
		return dst, nil
	}
	if src.Type().ConvertibleTo(typ) {
		return src.Convert(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", src.Type(), typ)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		return toTime(string(t))
	case string:
		if parsed, err := time.Parse(DateTimeLayout, t); err == nil {
			return parsed, nil
		}
	}
	return cast.ToTimeE(v)
}
