package mapping

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05.999999999",
}

// Coerce converts a raw driver value into a value of the target type. It is
// used when populating properties from query results and when comparing
// original values against freshly queried ones.
func Coerce(raw any, target reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(target), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Type() == target {
		return rv, nil
	}

	if target.Kind() == reflect.Pointer {
		inner, err := Coerce(raw, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(inner)
		return p, nil
	}

	if reflect.PointerTo(target).Implements(scannerType) {
		p := reflect.New(target)
		if err := p.Interface().(sql.Scanner).Scan(raw); err != nil {
			return reflect.Value{}, err
		}
		return p.Elem(), nil
	}

	if rv.Type().AssignableTo(target) {
		out := reflect.New(target).Elem()
		out.Set(rv)
		return out, nil
	}

	switch src := raw.(type) {
	case string:
		return parseText(src, target)
	case []byte:
		return parseText(string(src), target)
	}

	if isNumeric(rv.Kind()) || rv.Kind() == reflect.Bool {
		if isNumeric(target.Kind()) || target.Kind() == reflect.Bool {
			return convertNumber(rv, target)
		}
	}
	if target.Kind() != reflect.String && rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", raw, target)
}

func parseText(s string, target reflect.Type) (reflect.Value, error) {
	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.String:
		out.SetString(s)
		return out, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
		return out, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, target.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, target.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), target.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
		return out, nil
	case reflect.Slice:
		if target.Elem().Kind() == reflect.Uint8 {
			out.SetBytes([]byte(s))
			return out, nil
		}
	case reflect.Struct:
		if target == timeType {
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					out.Set(reflect.ValueOf(t))
					return out, nil
				}
			}
			return reflect.Value{}, fmt.Errorf("cannot parse %q as time", s)
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot convert text to %s", target)
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func convertNumber(rv reflect.Value, target reflect.Type) (reflect.Value, error) {
	out := reflect.New(target).Elem()
	k := rv.Kind()
	overflow := fmt.Errorf("value %v overflows %s", rv.Interface(), target)

	switch tk := target.Kind(); {
	case tk == reflect.Bool:
		switch {
		case isInt(k):
			out.SetBool(rv.Int() != 0)
		case isUint(k):
			out.SetBool(rv.Uint() != 0)
		case k == reflect.Bool:
			out.SetBool(rv.Bool())
		default:
			out.SetBool(rv.Float() != 0)
		}
	case isInt(tk):
		var n int64
		switch {
		case isInt(k):
			n = rv.Int()
		case isUint(k):
			if rv.Uint() > math.MaxInt64 {
				return reflect.Value{}, overflow
			}
			n = int64(rv.Uint())
		case k == reflect.Bool:
			if rv.Bool() {
				n = 1
			}
		default:
			f := rv.Float()
			if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
				return reflect.Value{}, fmt.Errorf("value %v is not representable as %s", f, target)
			}
			n = int64(f)
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, overflow
		}
		out.SetInt(n)
	case isUint(tk):
		var n uint64
		switch {
		case isInt(k):
			if rv.Int() < 0 {
				return reflect.Value{}, overflow
			}
			n = uint64(rv.Int())
		case isUint(k):
			n = rv.Uint()
		case k == reflect.Bool:
			if rv.Bool() {
				n = 1
			}
		default:
			f := rv.Float()
			if f < 0 || f != math.Trunc(f) || f > math.MaxUint64 {
				return reflect.Value{}, fmt.Errorf("value %v is not representable as %s", f, target)
			}
			n = uint64(f)
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, overflow
		}
		out.SetUint(n)
	default:
		var f float64
		switch {
		case isInt(k):
			f = float64(rv.Int())
		case isUint(k):
			f = float64(rv.Uint())
		case k == reflect.Bool:
			if rv.Bool() {
				f = 1
			}
		default:
			f = rv.Float()
		}
		if out.OverflowFloat(f) {
			return reflect.Value{}, overflow
		}
		out.SetFloat(f)
	}
	return out, nil
}

// Equal compares two values the way a database would see them: NULL-like
// values are equal to each other, pointers are compared by target, enums by
// their underlying value and mismatched types are coerced before comparing.
func Equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	at, bt := reflect.TypeOf(a), reflect.TypeOf(b)
	if at != bt {
		if cv, err := Coerce(b, at); err == nil {
			b = cv.Interface()
		} else if cv, err := Coerce(a, bt); err == nil {
			a = cv.Interface()
		} else {
			return false
		}
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	}
	return reflect.DeepEqual(a, b)
}

func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		if valid := rv.FieldByName("Valid"); valid.IsValid() && valid.Kind() == reflect.Bool {
			if !valid.Bool() {
				return nil
			}
			if dv, ok := rv.Interface().(driver.Valuer); ok {
				if x, err := dv.Value(); err == nil {
					return x
				}
			}
		}
	}
	return rv.Interface()
}
