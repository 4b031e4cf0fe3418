package schema

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	minInt = 0
	maxInt = 100

	// decoration is stripped from both ends of single-line values.
	decoration = "*_[]`" + " \t\r\n"

	// linePrefix may precede a label that opens a line: indentation, list
	// bullets and numbering, quotes, headings and emphasis.
	linePrefix = " \t-+*_>#•0123456789.)"
)

var intPattern = regexp.MustCompile(`[-+]?\d+`)

// labelMatcher finds "LABEL:" tokens. A label must follow start of text or a
// character that is not a letter, digit, underscore or asterisk, may be
// wrapped in markdown emphasis, and may have spaces before the colon.
type labelMatcher struct {
	re *regexp.Regexp
}

// labelSpan locates one label occurrence: where the label token begins and
// where its value begins. lineStart is set when only a list or markdown
// prefix separates the label from the start of its line.
type labelSpan struct {
	labelStart int
	valueStart int
	lineStart  bool
}

func newLabelMatcher(label string) *labelMatcher {
	pattern := `(?i)(?:^|[^\pL\pN_*])([*_]*` + regexp.QuoteMeta(label) + `[ \t*_]*:)`
	return &labelMatcher{re: regexp.MustCompile(pattern)}
}

func (m *labelMatcher) findAll(text string) []labelSpan {
	idx := m.re.FindAllStringSubmatchIndex(text, -1)
	spans := make([]labelSpan, 0, len(idx))
	for _, loc := range idx {
		spans = append(spans, labelSpan{
			labelStart: loc[2],
			valueStart: loc[1],
			lineStart:  atLineStart(text, loc[2]),
		})
	}
	return spans
}

func atLineStart(text string, pos int) bool {
	prefix := text[strings.LastIndexByte(text[:pos], '\n')+1 : pos]
	return strings.Trim(prefix, linePrefix) == ""
}

// Extract reads every field of the schema out of raw. It never fails: a
// missing label or a value that cannot be coerced yields the field default.
func (s *Schema) Extract(raw string) Values {
	occurrences := make([][]labelSpan, len(s.Fields))
	for i, m := range s.matchers {
		occurrences[i] = m.findAll(raw)
	}

	v := Values{
		Raw:    raw,
		values: make(map[string]any, len(s.Fields)),
	}

	for i, f := range s.Fields {
		if len(occurrences[i]) == 0 {
			v.setDefault(f)
			continue
		}

		start := occurrences[i][0].valueStart
		end := len(raw)
		switch f.Capture {
		case Line:
			start, end = lineRegion(raw, occurrences, i, start)
		case Block:
			// Prose may contain label-like words ("trust score: ..."), so a
			// block only ends at a label opening a line or at a later field.
			end = nextLabel(occurrences, i, start, len(raw), func(j int, sp labelSpan) bool {
				return sp.lineStart || j > i
			})
		case Rest:
		}

		val, ok := coerce(f, raw[start:end])
		if !ok {
			v.setDefault(f)
			continue
		}
		v.values[f.Name] = val
	}

	return v
}

// lineRegion returns the value region of a single-line field whose value
// starts at start. It ends at the newline or at any other label on the same
// line. When the label stands alone on its line, the next non-blank line is
// the value.
func lineRegion(raw string, occurrences [][]labelSpan, self, start int) (int, int) {
	end := lineEnd(raw, start)
	if strings.Trim(raw[start:end], decoration) == "" && end < len(raw) {
		next := end + 1
		for next < len(raw) {
			e := lineEnd(raw, next)
			if strings.Trim(raw[next:e], decoration) != "" || e == len(raw) {
				break
			}
			next = e + 1
		}
		if next < len(raw) {
			start, end = next, lineEnd(raw, next)
		}
	}
	return start, nextLabel(occurrences, self, start, end, anyLabel)
}

func lineEnd(raw string, pos int) int {
	if nl := strings.IndexByte(raw[pos:], '\n'); nl >= 0 {
		return pos + nl
	}
	return len(raw)
}

func anyLabel(int, labelSpan) bool { return true }

// nextLabel returns where the first label of another field accepted by stops
// begins at or after pos, or end when there is none.
func nextLabel(occurrences [][]labelSpan, self, pos, end int, stops func(field int, sp labelSpan) bool) int {
	for j, spans := range occurrences {
		if j == self {
			continue
		}
		for _, sp := range spans {
			if sp.labelStart >= pos && stops(j, sp) {
				if sp.labelStart < end {
					end = sp.labelStart
				}
				break
			}
		}
	}
	return end
}

func coerce(f Field, region string) (any, bool) {
	switch f.Kind {
	case Int:
		return parseInt(region)
	case Enum:
		return matchEnum(firstWord(region), f.Enum)
	case Bool:
		word := firstWord(region)
		for _, t := range f.Truthy {
			if strings.EqualFold(word, t) {
				return true, true
			}
		}
		return nil, false
	case List:
		return splitList(region), true
	default:
		var text string
		if f.Capture == Line {
			text = strings.Trim(region, decoration)
		} else {
			text = trimBlock(region)
		}
		if text == "" {
			return nil, false
		}
		return text, true
	}
}

// parseInt returns the first signed integer in s clamped to [0,100].
func parseInt(s string) (int, bool) {
	m := intPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		// Only range errors are possible here.
		if strings.HasPrefix(m, "-") {
			return minInt, true
		}
		return maxInt, true
	}
	return max(minInt, min(maxInt, n)), true
}

func matchEnum(word string, literals []string) (string, bool) {
	for _, lit := range literals {
		if strings.EqualFold(word, lit) {
			return lit, true
		}
	}
	return "", false
}

func firstWord(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	return words[0]
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, decoration); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// trimBlock trims whitespace and emphasis left over from a "**LABEL:**"
// heading, leaving the body intact.
func trimBlock(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "*_")
	return strings.TrimSpace(s)
}
