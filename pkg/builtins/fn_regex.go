package builtins

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/sandrolain/jqcore/pkg/types"
)

// matchFlags are the parsed modifier characters of match/2 and test/2.
type matchFlags struct {
	opts     regexp2.RegexOptions
	global   bool
	longest  bool
	notEmpty bool
}

func parseModifiers(mods any) (matchFlags, error) {
	var f matchFlags
	switch m := mods.(type) {
	case nil:
		return f, nil
	case string:
		for _, c := range m {
			switch c {
			case 'g':
				f.global = true
			case 'i':
				f.opts |= regexp2.IgnoreCase
			case 'x':
				f.opts |= regexp2.IgnorePatternWhitespace
			case 'm', 'p':
				f.opts |= regexp2.Singleline
			case 's':
			case 'l':
				f.longest = true
			case 'n':
				f.notEmpty = true
			default:
				return f, types.Errorf(types.ErrRegex, "%s is not a valid modifier string", m)
			}
		}
		return f, nil
	}
	return f, types.TypeError(mods, "is not a string")
}

// captureGroup locates a capture in a compiled expression: unnamed groups
// by number, named groups by name.
type captureGroup struct {
	number int
	name   string
}

// captureOrder lists the capturing groups of pattern from left to right.
// The engine numbers unnamed groups before named ones, so the textual order
// has to be recovered from the pattern.
func captureOrder(pattern string, extended bool) []captureGroup {
	var groups []captureGroup
	unnamed := 0
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
			}
		case c == '#' && extended:
			for i < len(pattern) && pattern[i] != '\n' {
				i++
			}
		case c == '(':
			rest := pattern[i+1:]
			if !strings.HasPrefix(rest, "?") {
				unnamed++
				groups = append(groups, captureGroup{number: unnamed})
				continue
			}
			if name, ok := groupName(rest[1:]); ok {
				groups = append(groups, captureGroup{name: name})
			}
		}
	}
	return groups
}

func groupName(s string) (string, bool) {
	s = strings.TrimPrefix(s, "P")
	if s == "" {
		return "", false
	}
	var end byte
	switch s[0] {
	case '<':
		end = '>'
	case '\'':
		end = '\''
	default:
		return "", false
	}
	if len(s) > 1 && (s[1] == '=' || s[1] == '!') {
		return "", false
	}
	i := strings.IndexByte(s[1:], end)
	if i <= 0 {
		return "", false
	}
	return s[1 : i+1], true
}

func fnMatchImpl(env Env, args []any) (any, error) {
	input, ok := args[0].(string)
	if !ok {
		return nil, types.TypeError(args[0], "cannot be matched, as it is not a string")
	}
	pattern, ok := args[1].(string)
	if !ok {
		return nil, types.TypeError(args[1], "is not a string")
	}
	flags, err := parseModifiers(args[2])
	if err != nil {
		return nil, err
	}
	test := args[3] == true
	return runMatch(env, input, pattern, flags, test)
}

// runMatch runs pattern over input. In test mode it reports whether there is
// any match; otherwise it returns the array of match objects.
func runMatch(env Env, input, pattern string, flags matchFlags, test bool) (any, error) {
	re, err := env.Regexp(pattern, flags.opts)
	if err != nil {
		return nil, types.Errorf(types.ErrRegex, "Regex failure: %s", err).WithCause(err)
	}
	var anchored *regexp2.Regexp
	if flags.longest {
		anchored, err = env.Regexp(anchoredPattern(pattern, flags.opts), flags.opts)
		if err != nil {
			return nil, types.Errorf(types.ErrRegex, "Regex failure: %s", err).WithCause(err)
		}
	}

	runes := []rune(input)
	groups := captureOrder(pattern, flags.opts&regexp2.IgnorePatternWhitespace != 0)
	result := []any{}
	for start := 0; start <= len(runes); {
		m, err := re.FindRunesMatchStartingAt(runes, start)
		if err != nil {
			return nil, types.Errorf(types.ErrRegex, "Regex failure: %s", err).WithCause(err)
		}
		if m == nil {
			break
		}
		if flags.notEmpty && m.Length == 0 {
			start = m.Index + 1
			continue
		}
		if anchored != nil {
			if lm, err := longestAt(anchored, runes, m); err != nil {
				return nil, types.Errorf(types.ErrRegex, "Regex failure: %s", err).WithCause(err)
			} else if lm != nil {
				m = lm
			}
		}
		if test {
			return true, nil
		}
		result = append(result, matchObject(m, groups))
		if m.Length == 0 {
			start = m.Index + 1
		} else {
			start = m.Index + m.Length
		}
		if !flags.global {
			break
		}
	}
	if test {
		return false, nil
	}
	return result, nil
}

func anchoredPattern(pattern string, opts regexp2.RegexOptions) string {
	if opts&regexp2.IgnorePatternWhitespace != 0 {
		return `\G(?:` + pattern + "\n)\\z"
	}
	return `\G(?:` + pattern + `)\z`
}

// longestAt looks for the longest match starting where m starts, trying
// every end position from the end of the input down to the end of m.
func longestAt(anchored *regexp2.Regexp, runes []rune, m *regexp2.Match) (*regexp2.Match, error) {
	for end := len(runes); end > m.Index+m.Length; end-- {
		lm, err := anchored.FindRunesMatchStartingAt(runes[:end], m.Index)
		if err != nil || lm != nil {
			return lm, err
		}
	}
	return nil, nil
}

func matchObject(m *regexp2.Match, groups []captureGroup) map[string]any {
	captures := make([]any, 0, len(groups))
	for _, g := range groups {
		var grp *regexp2.Group
		if g.name != "" {
			grp = m.GroupByName(g.name)
		} else {
			grp = m.GroupByNumber(g.number)
		}
		c := map[string]any{"offset": -1.0, "length": 0.0, "string": nil, "name": nil}
		if g.name != "" {
			c["name"] = g.name
		}
		switch {
		case grp == nil || len(grp.Captures) == 0:
		case m.Length == 0:
			// An empty match reports its groups as empty at the match offset.
			c["offset"] = float64(m.Index)
			c["string"] = ""
		default:
			c["offset"] = float64(grp.Index)
			c["length"] = float64(grp.Length)
			c["string"] = grp.String()
		}
		captures = append(captures, c)
	}
	return map[string]any{
		"offset":   float64(m.Index),
		"length":   float64(m.Length),
		"string":   m.String(),
		"captures": captures,
	}
}
