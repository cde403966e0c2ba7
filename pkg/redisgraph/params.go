package redisgraph

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// PrepareQuery prefixes query with a CYPHER parameter header, one k=v pair
// per entry of params in key order. Strings are double-quoted and escaped;
// slices and arrays render as lists, string-keyed maps as map literals.
// Floats always carry a decimal point or exponent so the server keeps them
// as floats. NaN and infinities have no literal form and fail with
// ErrInvalidParameter.
//
//	PrepareQuery("MATCH (n {name: $name}) RETURN n", map[string]any{"name": "a\"b"})
//	// CYPHER name="a\"b" MATCH (n {name: $name}) RETURN n
func PrepareQuery(query string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return query, nil
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("CYPHER ")
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		if err := writeValue(&b, params[k]); err != nil {
			return "", fmt.Errorf("parameter %q: %w", k, err)
		}
		b.WriteByte(' ')
	}
	b.WriteString(query)
	return b.String(), nil
}

// procedureQuery builds CALL procedure(args...) [YIELD yield...].
func procedureQuery(procedure string, args []any, yield []string) (string, error) {
	var b strings.Builder
	b.WriteString("CALL ")
	b.WriteString(procedure)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeValue(&b, a); err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
	}
	b.WriteByte(')')
	if len(yield) > 0 {
		b.WriteString(" YIELD ")
		b.WriteString(strings.Join(yield, ","))
	}
	return b.String(), nil
}

func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func writeValue(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		b.WriteString(quoteString(x))
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case int:
		b.WriteString(strconv.Itoa(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case float64:
		return writeFloat(b, x, 64)
	case float32:
		return writeFloat(b, float64(x), 32)
	case fmt.Stringer:
		b.WriteString(quoteString(x.String()))
	default:
		return writeReflected(b, reflect.ValueOf(v))
	}
	return nil
}

// writeFloat renders f so it never reads back as an integer: 1.0 is "1.0",
// not "1". Cypher exponents take no '+' sign.
func writeFloat(b *strings.Builder, f float64, bitSize int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v has no literal form", ErrInvalidParameter, f)
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e21) {
		format = 'e'
	}
	s := strings.Replace(strconv.FormatFloat(f, format, -1, bitSize), "e+", "e", 1)
	b.WriteString(s)
	if !strings.ContainsAny(s, ".eE") {
		b.WriteString(".0")
	}
	return nil
}

func writeReflected(b *strings.Builder, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			b.WriteString("null")
			return nil
		}
		b.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeValue(b, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			b.WriteString(quoteString(fmt.Sprint(rv.Interface())))
			return nil
		}
		if rv.IsNil() {
			b.WriteString("null")
			return nil
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			if err := writeValue(b, rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return writeFloat(b, rv.Float(), rv.Type().Bits())
	case reflect.Pointer:
		if rv.IsNil() {
			b.WriteString("null")
			return nil
		}
		return writeValue(b, rv.Elem().Interface())
	default:
		b.WriteString(quoteString(fmt.Sprint(rv.Interface())))
	}
	return nil
}
