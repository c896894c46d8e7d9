package builtins

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/jqcore/pkg/types"
)

// escapeTable maps ASCII characters to their replacement. NUL always
// renders as `\0`.
type escapeTable map[rune]string

func newEscapeTable(pairs ...string) escapeTable {
	t := escapeTable{0: `\0`}
	for i := 0; i+1 < len(pairs); i += 2 {
		r, _ := utf8.DecodeRuneInString(pairs[i])
		t[r] = pairs[i+1]
	}
	return t
}

var (
	csvEscapes  = newEscapeTable(`"`, `""`)
	tsvEscapes  = newEscapeTable("\t", `\t`, "\r", `\r`, "\n", `\n`, `\`, `\\`)
	htmlEscapes = newEscapeTable("&", "&amp;", "<", "&lt;", ">", "&gt;", "'", "&apos;", `"`, "&quot;")
	shEscapes   = newEscapeTable("'", `'\''`)
)

func (t escapeTable) apply(sb *strings.Builder, s string) {
	for _, r := range s {
		if rep, ok := t[r]; ok {
			sb.WriteString(rep)
		} else {
			sb.WriteRune(r)
		}
	}
}

func (t escapeTable) escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	t.apply(&sb, s)
	return sb.String()
}

type formatter func(v any) (any, error)

var formatters = map[string]formatter{
	"json":    func(v any) (any, error) { return types.Dump(v), nil },
	"text":    func(v any) (any, error) { return toString(v), nil },
	"csv":     formatRow(",", `"`, csvEscapes, "cannot be csv-formatted, only array"),
	"tsv":     formatRow("\t", "", tsvEscapes, "cannot be tsv-formatted, only array"),
	"html":    func(v any) (any, error) { return htmlEscapes.escape(toString(v)), nil },
	"uri":     func(v any) (any, error) { return FormatURI(toString(v)), nil },
	"urid":    formatURID,
	"sh":      formatShell,
	"base64":  func(v any) (any, error) { return base64.StdEncoding.EncodeToString([]byte(toString(v))), nil },
	"base64d": formatBase64Decode,
}

// Format applies the named @format to v.
func Format(name string, v any) (any, error) {
	f, ok := formatters[name]
	if !ok {
		return nil, types.Errorf(types.ErrDomain, "%s is not a valid format", name)
	}
	return f(v)
}

func fnFormat(_ Env, args []any) (any, error) {
	name, ok := args[1].(string)
	if !ok {
		return nil, types.TypeError(args[1], "is not a valid format")
	}
	return Format(name, args[0])
}

func formatRow(sep, quote string, esc escapeTable, msg string) formatter {
	return func(v any) (any, error) {
		row, ok := v.([]any)
		if !ok {
			return nil, types.TypeError(v, msg)
		}
		var sb strings.Builder
		for i, x := range row {
			if i > 0 {
				sb.WriteString(sep)
			}
			switch x := x.(type) {
			case nil:
			case bool:
				sb.WriteString(types.Dump(x))
			case float64:
				if !math.IsNaN(x) {
					sb.WriteString(types.Dump(x))
				}
			case string:
				sb.WriteString(quote)
				esc.apply(&sb, x)
				sb.WriteString(quote)
			default:
				return nil, types.TypeError(x, "is not valid in a csv row")
			}
		}
		return sb.String(), nil
	}
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '_' || c == '.' || c == '~'
}

// FormatURI percent-encodes every byte outside the unreserved set.
func FormatURI(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if c := s[i]; isUnreserved(c) {
			sb.WriteByte(c)
		} else {
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	return sb.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func formatURID(v any) (any, error) {
	s := toString(v)
	invalid := func() (any, error) {
		return nil, types.TypeError(s, "is not a valid uri encoding")
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '%' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		// The leading bits of the first octet give the sequence length.
		var buf [4]byte
		n := 0
		for n == 0 || (n < 4 && buf[0]&0x80 != 0 && buf[0]&(0x80>>n) != 0) {
			if i+2 >= len(s) || s[i] != '%' {
				return invalid()
			}
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if !ok1 || !ok2 {
				return invalid()
			}
			buf[n] = hi<<4 | lo
			n++
			i += 3
		}
		if !utf8.Valid(buf[:n]) {
			return invalid()
		}
		sb.Write(buf[:n])
	}
	return sb.String(), nil
}

func formatShell(v any) (any, error) {
	words, ok := v.([]any)
	if !ok {
		words = []any{v}
	}
	var sb strings.Builder
	for i, x := range words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch x := x.(type) {
		case nil, bool, float64:
			sb.WriteString(types.Dump(x))
		case string:
			sb.WriteByte('\'')
			shEscapes.apply(&sb, x)
			sb.WriteByte('\'')
		default:
			return nil, types.TypeError(x, "can not be escaped for shell")
		}
	}
	return sb.String(), nil
}

func isBase64(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	return c == '+' || c == '/'
}

func formatBase64Decode(v any) (any, error) {
	s := toString(v)
	data := s
	if i := strings.IndexByte(data, '='); i >= 0 {
		data = data[:i]
	}
	for i := 0; i < len(data); i++ {
		if !isBase64(data[i]) {
			return nil, types.TypeError(s, "is not valid base64 data")
		}
	}
	if len(data)%4 == 1 {
		return nil, types.TypeError(s, "trailing base64 byte found")
	}
	b, err := base64.RawStdEncoding.DecodeString(data)
	if err != nil {
		return nil, types.TypeError(s, "is not valid base64 data").WithCause(err)
	}
	return string([]rune(string(b))), nil
}
