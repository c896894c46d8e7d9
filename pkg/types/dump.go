package types

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// truncLen is the size of the buffer jq renders offending values into when
// building error messages, terminator included.
const truncLen = 15

const hexDigits = "0123456789abcdef"

// Dump renders v as compact JSON. Object keys are emitted in sorted order,
// NaN renders as null and infinities clamp to the largest finite double.
func Dump(v any) string {
	var sb strings.Builder
	dumpTo(&sb, v)
	return sb.String()
}

// DumpTrunc renders v like Dump but cuts the result to fit an error message,
// marking the cut with "...".
func DumpTrunc(v any) string {
	return DumpTruncN(v, truncLen)
}

// DumpTruncN is DumpTrunc with a buffer of size bytes.
func DumpTruncN(v any, size int) string {
	s := Dump(v)
	if len(s) < size {
		return s
	}
	cut := size - 4
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func dumpTo(sb *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		if v {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case float64:
		sb.WriteString(FormatNumber(v))
	case int:
		sb.WriteString(strconv.Itoa(v))
	case string:
		writeString(sb, v)
	case []any:
		sb.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			dumpTo(sb, e)
		}
		sb.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeString(sb, k)
			sb.WriteByte(':')
			dumpTo(sb, v[k])
		}
		sb.WriteByte('}')
	default:
		sb.WriteString("null")
	}
}

// FormatNumber renders a number the way jq prints it: integers without a
// fraction, shortest round-trip digits otherwise, exponent form for very
// small or very large magnitudes.
func FormatNumber(f float64) string {
	if math.IsNaN(f) {
		return "null"
	}
	if f >= math.MaxFloat64 {
		f = math.MaxFloat64
	} else if f <= -math.MaxFloat64 {
		f = -math.MaxFloat64
	}
	format := byte('f')
	if x := math.Abs(f); x != 0 && (x < 1e-5 || x >= 1e17) {
		format = 'e'
	}
	return strconv.FormatFloat(f, format, -1, 64)
}

func writeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				sb.WriteString(s[start:i])
				sb.WriteString("\ufffd")
				i++
				start = i
				continue
			}
			i += size
			continue
		}
		if c >= 0x20 && c != '"' && c != '\\' && c != 0x7f {
			i++
			continue
		}
		sb.WriteString(s[start:i])
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteString(`\u00`)
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0xf])
		}
		i++
		start = i
	}
	sb.WriteString(s[start:])
	sb.WriteByte('"')
}
