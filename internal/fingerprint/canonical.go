package fingerprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
)

// Canonicalize serializes v as JCS (RFC 8785) JSON: sorted keys,
// shortest number forms, fixed string escaping. Canonical bytes are
// what gets hashed and signed, so byte-identical inputs always yield
// byte-identical artifacts.
func Canonicalize(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJCSValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeJCSValue recursive
func writeJCSValue(buf *bytes.Buffer, v interface{}) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}

	switch val := v.(type) {
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		s, err := jcsFormatNumber(val)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return err
		}
		s, err := jcsFormatNumber(f)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case string:
		writeJCSString(buf, val)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJCSValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		if err := writeJCSObject(buf, val); err != nil {
			return err
		}
	default:
		// structs and other typed values: round-trip through encoding/json
		// so that map keys inside them still come out sorted
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		var generic interface{}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return err
		}
		return writeJCSValue(buf, generic)
	}
	return nil
}

// writeJCSObject sorted keys
func writeJCSObject(buf *bytes.Buffer, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	// JCS requires sorting by UTF-16 code unit comparison
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})

	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJCSString(buf, key)
		buf.WriteByte(':')
		if err := writeJCSValue(buf, m[key]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// compareUTF16 helper
func compareUTF16(a, b string) int {
	aUnits := utf16.Encode([]rune(a))
	bUnits := utf16.Encode([]rune(b))

	minLen := len(aUnits)
	if len(bUnits) < minLen {
		minLen = len(bUnits)
	}

	for i := 0; i < minLen; i++ {
		if aUnits[i] < bUnits[i] {
			return -1
		}
		if aUnits[i] > bUnits[i] {
			return 1
		}
	}

	return len(aUnits) - len(bUnits)
}

// writeJCSString escaped
func writeJCSString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				// control characters must be escaped as \uXXXX
				buf.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// jcsFormatNumber RFC8785
func jcsFormatNumber(f float64) (string, error) {
	if f != f { // NaN
		return "", fmt.Errorf("NaN is not a valid JSON number")
	}
	if f > 1.7976931348623157e+308 || f < -1.7976931348623157e+308 {
		return "", fmt.Errorf("infinity is not a valid JSON number")
	}

	// -0 serializes as "0" per RFC 8785
	if f == 0 {
		return "0", nil
	}

	if f == float64(int64(f)) && f >= -9007199254740991 && f <= 9007199254740991 {
		return strconv.FormatInt(int64(f), 10), nil
	}

	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
