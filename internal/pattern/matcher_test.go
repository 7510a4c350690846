package pattern

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	prefix   = "https://mail.google.com/mail/u/0/"
	newToken = "FMfcgxvwzcHJnwThBsNqnvSPLSsgPxnJ"
)

func fieldMap(m *Match) map[string]string {
	out := make(map[string]string, len(m.Fields))
	for _, f := range m.Fields {
		out[f.Name] = f.Value
	}
	return out
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeBoth},
		{in: "both", want: ModeBoth},
		{in: "Legacy", want: ModeLegacy},
		{in: " new ", want: ModeNew},
		{in: "all", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMode_Matches(t *testing.T) {
	assert.True(t, ModeBoth.MatchesLegacy())
	assert.True(t, ModeBoth.MatchesNew())
	assert.True(t, ModeLegacy.MatchesLegacy())
	assert.False(t, ModeLegacy.MatchesNew())
	assert.False(t, ModeNew.MatchesLegacy())
	assert.True(t, ModeNew.MatchesNew())
}

func newMatcher(t *testing.T, mode Mode) *Matcher {
	t.Helper()
	m, err := New(mode)
	require.NoError(t, err)
	return m
}

func TestNew_InvalidMode(t *testing.T) {
	_, err := New(Mode("sideways"))
	assert.Error(t, err)
}

func TestMatchLine(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		line     string
		wantURL  string
		wantFlds map[string]string
	}{
		{
			name:     "search without token",
			mode:     ModeBoth,
			line:     prefix + "#search/invoice",
			wantURL:  prefix + "#search/invoice",
			wantFlds: map[string]string{FieldUserNo: "0", FieldSearchFlag: "#search", FieldSearchString: "invoice"},
		},
		{
			name:     "legacy view token",
			mode:     ModeLegacy,
			line:     prefix + "#inbox/15f3a2b1c4d5e601",
			wantURL:  prefix + "#inbox/15f3a2b1c4d5e601",
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#inbox", FieldLegacyViewToken: "15f3a2b1c4d5e601"},
		},
		{
			name:     "last user number segment wins",
			mode:     ModeBoth,
			line:     prefix + "1/#inbox",
			wantURL:  prefix + "1/#inbox",
			wantFlds: map[string]string{FieldUserNo: "1", FieldFolder: "#inbox"},
		},
		{
			name:     "folder with subfolder",
			mode:     ModeBoth,
			line:     prefix + "#label/work/15f3a2b1c4d5e601",
			wantURL:  prefix + "#label/work/15f3a2b1c4d5e601",
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#label", FieldSubfolder: "work", FieldLegacyViewToken: "15f3a2b1c4d5e601"},
		},
		{
			name:     "legacy compose list",
			mode:     ModeBoth,
			line:     prefix + "#inbox?compose=15f3a2b1c4d5e601%2C15f3a2b1c4d5e602",
			wantURL:  prefix + "#inbox?compose=15f3a2b1c4d5e601%2C15f3a2b1c4d5e602",
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#inbox", FieldLegacyComposeToken: "15f3a2b1c4d5e601%2C15f3a2b1c4d5e602"},
		},
		{
			name:     "compose new is not a token",
			mode:     ModeNew,
			line:     prefix + "#inbox?compose=new",
			wantURL:  prefix + "#inbox?compose=new",
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#inbox"},
		},
		{
			name:     "new view token",
			mode:     ModeBoth,
			line:     prefix + "#inbox/" + newToken,
			wantURL:  prefix + "#inbox/" + newToken,
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#inbox", FieldNewViewToken: newToken},
		},
		{
			name:     "new compose token",
			mode:     ModeNew,
			line:     prefix + "#inbox?compose=" + newToken,
			wantURL:  prefix + "#inbox?compose=" + newToken,
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#inbox", FieldNewComposeToken: newToken},
		},
		{
			name:     "search with new view token and compose new",
			mode:     ModeBoth,
			line:     "https://mail.google.com/mail/u/2/#search/from%3Abob/" + newToken + "?compose=new",
			wantURL:  "https://mail.google.com/mail/u/2/#search/from%3Abob/" + newToken + "?compose=new",
			wantFlds: map[string]string{FieldUserNo: "2", FieldSearchFlag: "#search", FieldSearchString: "from%3Abob", FieldNewViewToken: newToken},
		},
		{
			name:     "trailing text ignored",
			mode:     ModeBoth,
			line:     prefix + "#inbox/15f3a2b1c4d5e601 trailing text",
			wantURL:  prefix + "#inbox/15f3a2b1c4d5e601",
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#inbox", FieldLegacyViewToken: "15f3a2b1c4d5e601"},
		},
		{
			name:     "search marker without string is a folder",
			mode:     ModeBoth,
			line:     prefix + "#search",
			wantURL:  prefix + "#search",
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#search"},
		},
		{
			name:     "short new token is left out",
			mode:     ModeBoth,
			line:     prefix + "#inbox/" + newToken[:31],
			wantURL:  prefix + "#inbox",
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#inbox"},
		},
		{
			name:     "legacy token ignored in new mode",
			mode:     ModeNew,
			line:     prefix + "#inbox/15f3a2b1c4d5e601",
			wantURL:  prefix + "#inbox",
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#inbox"},
		},
		{
			name:     "new token ignored in legacy mode",
			mode:     ModeLegacy,
			line:     prefix + "#inbox?compose=" + newToken,
			wantURL:  prefix + "#inbox",
			wantFlds: map[string]string{FieldUserNo: "0", FieldFolder: "#inbox"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMatcher(t, tt.mode)
			got, ok := m.MatchLine(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.wantURL, got.Text)
			assert.Equal(t, tt.wantFlds, fieldMap(got))
			for _, f := range got.Fields {
				assert.Equal(t, f.Value, got.Text[f.Start:f.End], "span of %s", f.Name)
			}
		})
	}
}

func TestMatchLine_NoMatch(t *testing.T) {
	m := newMatcher(t, ModeBoth)
	for _, line := range []string{
		"",
		prefix,
		"http://mail.google.com/mail/u/0/#inbox",
		"see " + prefix + "#inbox",
		"https://mail.google.com/mail/0/#inbox",
	} {
		_, ok := m.MatchLine(line)
		assert.False(t, ok, "line %q should not match", line)
	}
}

func TestMatchLine_FieldOrder(t *testing.T) {
	m := newMatcher(t, ModeBoth)
	got, ok := m.MatchLine(prefix + "#label/work/15f3a2b1c4d5e601?compose=15f3a2b1c4d5e602")
	require.True(t, ok)

	var names []string
	for _, f := range got.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{FieldUserNo, FieldFolder, FieldSubfolder, FieldLegacyViewToken, FieldLegacyComposeToken}, names)
	assert.True(t, got.Has(FieldSubfolder))
	assert.False(t, got.Has(FieldSearchFlag))
}

func TestForeachMatch(t *testing.T) {
	first := prefix + "#inbox/15f3a2b1c4d5e601"
	second := "https://mail.google.com/mail/u/1/#inbox?compose=" + newToken
	data := []byte("\x00\x01junk" + first + "\xff\xfe" + second + "\x00tail")

	m := newMatcher(t, ModeBoth)
	var got []*Match
	err := m.ForeachMatch(context.Background(), data, func(match *Match) error {
		got = append(got, match)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, first, got[0].Text)
	assert.Equal(t, int64(6), got[0].Offset)
	assert.Equal(t, "15f3a2b1c4d5e601", fieldMap(got[0])[FieldLegacyViewToken])

	assert.Equal(t, second, got[1].Text)
	assert.Equal(t, int64(6+len(first)+2), got[1].Offset)
	assert.Equal(t, newToken, fieldMap(got[1])[FieldNewComposeToken])
	assert.Equal(t, "1", fieldMap(got[1])[FieldUserNo])
}

func TestForeachMatch_GreedyCapture(t *testing.T) {
	// Bytes after a token that belong to its alphabet are captured too.
	data := []byte(prefix + "#inbox/" + newToken + "bcd\x00")

	m := newMatcher(t, ModeNew)
	var tokens []string
	require.NoError(t, m.ForeachMatch(context.Background(), data, func(match *Match) error {
		tokens = append(tokens, fieldMap(match)[FieldNewViewToken])
		return nil
	}))
	assert.Equal(t, []string{newToken + "bcd"}, tokens)
}

func TestForeachMatch_Empty(t *testing.T) {
	m := newMatcher(t, ModeBoth)
	calls := 0
	require.NoError(t, m.ForeachMatch(context.Background(), nil, func(*Match) error {
		calls++
		return nil
	}))
	assert.Zero(t, calls)
}

func TestForeachMatch_StopsOnError(t *testing.T) {
	data := []byte(strings.Repeat(prefix+"#inbox\n", 5))
	stop := errors.New("stop")

	m := newMatcher(t, ModeBoth)
	calls := 0
	err := m.ForeachMatch(context.Background(), data, func(*Match) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestForeachMatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newMatcher(t, ModeBoth)
	err := m.ForeachMatch(ctx, []byte(prefix+"#inbox"), func(*Match) error {
		t.Fatal("callback must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
