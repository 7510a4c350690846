package pattern

import (
	"context"
	"fmt"
	"regexp"
)

// Field is one named capture of a Match.
type Field struct {
	Name  string
	Value string

	// Start and End delimit Value inside Match.Text.
	Start int
	End   int
}

// Match is one Gmail URL found in the input.
type Match struct {
	// Line is the 1-based line number for text input, zero otherwise.
	Line int

	// Offset is the byte offset of the URL for raw input.
	Offset int64

	// Text is the full matched URL.
	Text string

	// Fields holds the captured fields in grammar order. Fields that did not
	// participate in the match are absent.
	Fields []Field
}

// Field returns the named field.
func (m *Match) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Has reports whether the named field was captured.
func (m *Match) Has(name string) bool {
	_, ok := m.Field(name)
	return ok
}

// Matcher finds Gmail URLs for one Mode.
type Matcher struct {
	mode     Mode
	re       *regexp.Regexp
	anchored *regexp.Regexp
}

// New compiles the grammar for mode.
func New(mode Mode) (*Matcher, error) {
	expr, err := Expr(mode)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s grammar: %w", mode, err)
	}
	anchored, err := regexp.Compile(`^(?:` + expr + `)`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile anchored %s grammar: %w", mode, err)
	}
	if mode == "" {
		mode = ModeBoth
	}
	return &Matcher{mode: mode, re: re, anchored: anchored}, nil
}

// Mode returns the mode the matcher was compiled for.
func (m *Matcher) Mode() Mode {
	return m.mode
}

// MatchLine matches a URL starting at the beginning of line. Trailing text
// after the URL is ignored.
func (m *Matcher) MatchLine(line string) (*Match, bool) {
	loc := m.anchored.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil, false
	}
	return m.build(line[loc[0]:loc[1]], loc), true
}

// ForeachMatch calls fn for every URL in data, left to right. Scanning resumes
// after the end of each match. It stops at the first error returned by fn or
// when ctx is done.
func (m *Matcher) ForeachMatch(ctx context.Context, data []byte, fn func(*Match) error) error {
	pos := 0
	for pos < len(data) {
		if err := ctx.Err(); err != nil {
			return err
		}

		loc := m.re.FindSubmatchIndex(data[pos:])
		if loc == nil {
			return nil
		}

		match := m.build(string(data[pos+loc[0]:pos+loc[1]]), loc)
		match.Offset = int64(pos + loc[0])
		if err := fn(match); err != nil {
			return err
		}
		pos += loc[1]
	}
	return nil
}

// build turns submatch indices into a Match. loc is relative to the searched
// input; Field spans are rebased onto text.
func (m *Matcher) build(text string, loc []int) *Match {
	match := &Match{Text: text}
	base := loc[0]
	for i, name := range m.re.SubexpNames() {
		if name == "" || loc[2*i] < 0 {
			continue
		}
		start, end := loc[2*i]-base, loc[2*i+1]-base
		match.Fields = append(match.Fields, Field{
			Name:  name,
			Value: text[start:end],
			Start: start,
			End:   end,
		})
	}
	return match
}
