package record

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmailurl/internal/logging"
	"github.com/teemow/gmailurl/internal/pattern"
)

const (
	prefix       = "https://mail.google.com/mail/u/0/"
	newToken     = "FMfcgxvwzcHJnwThBsNqnvSPLSsgPxnJ"
	invalidToken = "LGbmkWSgvhTshRzmxBVLSXVTQTpSPvJT"
)

type countingObserver struct {
	mu        sync.Mutex
	corrected []string
	failed    []string
}

func (o *countingObserver) TokenCorrected(_ context.Context, field string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.corrected = append(o.corrected, field)
}

func (o *countingObserver) DecodeFailed(_ context.Context, field string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, field)
}

func matchLine(t *testing.T, mode pattern.Mode, line string) *pattern.Match {
	t.Helper()
	matcher, err := pattern.New(mode)
	require.NoError(t, err)
	m, ok := matcher.MatchLine(line)
	require.True(t, ok, "line %q should match", line)
	m.Line = 1
	return m
}

func matchRaw(t *testing.T, mode pattern.Mode, data string) *pattern.Match {
	t.Helper()
	matcher, err := pattern.New(mode)
	require.NoError(t, err)
	var got *pattern.Match
	err = matcher.ForeachMatch(context.Background(), []byte(data), func(m *pattern.Match) error {
		if got == nil {
			got = m
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, got, "data should contain a URL")
	return got
}

type kv struct{ k, v string }

func pairs(r *Record) []kv {
	var out []kv
	for _, k := range r.Keys() {
		v, _ := r.Get(k)
		out = append(out, kv{k, v})
	}
	return out
}

func TestBuild_Text(t *testing.T) {
	tests := []struct {
		name string
		mode pattern.Mode
		line string
		want []kv
	}{
		{
			name: "search without token",
			mode: pattern.ModeBoth,
			line: prefix + "#search/invoice",
			want: []kv{
				{"line", "1"},
				{"url", prefix + "#search/invoice"},
				{"user_no", "0"},
				{"search_flag", "#search"},
				{"search_string", "invoice"},
			},
		},
		{
			name: "legacy view token",
			mode: pattern.ModeLegacy,
			line: prefix + "#inbox/15f3a2b1c4d5e60",
			want: []kv{
				{"line", "1"},
				{"url", prefix + "#inbox/15f3a2b1c4d5e60"},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"legacy_view_token", "15f3a2b1c4d5e60"},
				{"timestamp_legacy_view_token", "1972-12-27 05:23:59.044836"},
			},
		},
		{
			name: "legacy 16 digit token is not corrected in text",
			mode: pattern.ModeBoth,
			line: prefix + "#inbox/25f3a2b1c4d5e601",
			want: []kv{
				{"line", "1"},
				{"url", prefix + "#inbox/25f3a2b1c4d5e601"},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"legacy_view_token", "25f3a2b1c4d5e601"},
				{"timestamp_legacy_view_token", "2052-08-23 10:17:32.493369"},
			},
		},
		{
			name: "single legacy compose token",
			mode: pattern.ModeLegacy,
			line: prefix + "#inbox?compose=15f3a2b1c4d5e601",
			want: []kv{
				{"line", "1"},
				{"url", prefix + "#inbox?compose=15f3a2b1c4d5e601"},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"legacy_compose_token", "15f3a2b1c4d5e601"},
				{"timestamp_legacy_compose_token", "2017-10-20 14:23:44.717369"},
			},
		},
		{
			name: "legacy compose list",
			mode: pattern.ModeBoth,
			line: prefix + "#inbox/15f3a2b1c4d5e601?compose=15f3a2b1c4d5e602%2C15f3a2b1c4d5e60",
			want: []kv{
				{"line", "1"},
				{"url", prefix + "#inbox/15f3a2b1c4d5e601?compose=15f3a2b1c4d5e602%2C15f3a2b1c4d5e60"},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"legacy_view_token", "15f3a2b1c4d5e601"},
				{"timestamp_legacy_view_token", "2017-10-20 14:23:44.717369"},
				{"legacy_compose_token", "15f3a2b1c4d5e602%2C15f3a2b1c4d5e60"},
				{"timestamp1_legacy_compose_token", "2017-10-20 14:23:44.717369"},
				{"timestamp2_legacy_compose_token", "1972-12-27 05:23:59.044836"},
			},
		},
		{
			name: "new view token",
			mode: pattern.ModeNew,
			line: prefix + "#inbox/" + newToken,
			want: []kv{
				{"line", "1"},
				{"url", prefix + "#inbox/" + newToken},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"new_view_token", newToken},
				{"dec_new_view_token", "thread-f:1603543422975695206"},
				{"timestamp_new_view_token_thread-f:", "2018-06-17 17:56:17.734084"},
			},
		},
		{
			name: "compose new yields no compose token",
			mode: pattern.ModeNew,
			line: prefix + "#inbox?compose=new",
			want: []kv{
				{"line", "1"},
				{"url", prefix + "#inbox?compose=new"},
				{"user_no", "0"},
				{"folder", "#inbox"},
			},
		},
		{
			name: "undecodable new token keeps only the raw field",
			mode: pattern.ModeNew,
			line: prefix + "#inbox?compose=" + invalidToken,
			want: []kv{
				{"line", "1"},
				{"url", prefix + "#inbox?compose=" + invalidToken},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"new_compose_token", invalidToken},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(Options{Source: SourceText})
			rec, err := b.Build(context.Background(), matchLine(t, tt.mode, tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, pairs(rec))
		})
	}
}

func TestBuild_RawCorrections(t *testing.T) {
	tests := []struct {
		name          string
		mode          pattern.Mode
		data          string
		want          []kv
		wantCorrected []string
		wantFailed    []string
	}{
		{
			name: "legacy view token trimmed",
			mode: pattern.ModeLegacy,
			data: "\x00\x00" + prefix + "#inbox/25f3a2b1c4d5e601\x00",
			want: []kv{
				{"offset", "0x2"},
				{"url", prefix + "#inbox/25f3a2b1c4d5e60"},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"legacy_view_token", "25f3a2b1c4d5e60"},
				{"timestamp_legacy_view_token", "1975-03-02 14:08:35.780836"},
			},
			wantCorrected: []string{"legacy_view_token"},
		},
		{
			name: "legacy view token before compose is kept",
			mode: pattern.ModeLegacy,
			data: prefix + "#inbox/25f3a2b1c4d5e601?compose=35f3a2b1c4d5e601",
			want: []kv{
				{"offset", "0x0"},
				{"url", prefix + "#inbox/25f3a2b1c4d5e601?compose=35f3a2b1c4d5e60"},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"legacy_view_token", "25f3a2b1c4d5e601"},
				{"timestamp_legacy_view_token", "2052-08-23 10:17:32.493369"},
				{"legacy_compose_token", "35f3a2b1c4d5e60"},
				{"timestamp_legacy_compose_token", "1977-05-05 22:53:12.516836"},
			},
			wantCorrected: []string{"legacy_compose_token"},
		},
		{
			name: "new view token trimmed to decodable length",
			mode: pattern.ModeNew,
			data: "junk" + prefix + "#inbox/" + newToken + "pqrst\xff",
			want: []kv{
				{"offset", "0x4"},
				{"url", prefix + "#inbox/" + newToken},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"new_view_token", newToken},
				{"dec_new_view_token", "thread-f:1603543422975695206"},
				{"timestamp_new_view_token_thread-f:", "2018-06-17 17:56:17.734084"},
			},
			wantCorrected: []string{"new_view_token"},
		},
		{
			name: "undecodable minimum length token",
			mode: pattern.ModeNew,
			data: prefix + "#inbox/" + invalidToken,
			want: []kv{
				{"offset", "0x0"},
				{"url", prefix + "#inbox/" + invalidToken},
				{"user_no", "0"},
				{"folder", "#inbox"},
				{"new_view_token", invalidToken},
			},
			wantFailed: []string{"new_view_token"},
		},
		{
			name: "non-printable search bytes are escaped",
			mode: pattern.ModeBoth,
			data: prefix + "#search/a\\b\x01c",
			want: []kv{
				{"offset", "0x0"},
				{"url", prefix + `#search/a\\b\x01c`},
				{"user_no", "0"},
				{"search_flag", "#search"},
				{"search_string", `a\\b\x01c`},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &countingObserver{}
			b := NewBuilder(Options{Source: SourceRaw, Observer: obs})
			rec, err := b.Build(context.Background(), matchRaw(t, tt.mode, tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, pairs(rec))
			assert.Equal(t, tt.wantCorrected, obs.corrected)
			assert.Equal(t, tt.wantFailed, obs.failed)
		})
	}
}

func TestBuild_LogsCorrectionsAndFailures(t *testing.T) {
	var buf bytes.Buffer
	b := NewBuilder(Options{
		Source: SourceRaw,
		Logger: logging.NewSlogAdapter(logging.New(&buf, true)),
	})

	_, err := b.Build(context.Background(), matchRaw(t, pattern.ModeNew, prefix+"#inbox/"+newToken+"pqrst\xff"))
	require.NoError(t, err)
	_, err = b.Build(context.Background(), matchRaw(t, pattern.ModeNew, prefix+"#inbox/"+invalidToken))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="token corrected" field=new_view_token token="[token:37 chars]" trimmed=5`)
	assert.Contains(t, out, `msg="decode failed" field=new_view_token token="[token:32 chars]"`)
	assert.NotContains(t, out, newToken)
	assert.NotContains(t, out, invalidToken)
}

func TestBuild_URLMatchesCorrectedTokens(t *testing.T) {
	b := NewBuilder(Options{Source: SourceRaw})
	rec, err := b.Build(context.Background(), matchRaw(t, pattern.ModeNew, prefix+"#inbox?compose="+newToken+"bcd"))
	require.NoError(t, err)

	url, _ := rec.Get(KeyURL)
	tok, _ := rec.Get(pattern.FieldNewComposeToken)
	assert.Equal(t, newToken, tok)
	assert.Equal(t, prefix+"#inbox?compose="+tok, url)
}

func TestBuild_InvalidLegacyTokenIsAnError(t *testing.T) {
	m := &pattern.Match{
		Line: 3,
		Text: prefix + "#inbox/zzzzzzzzzzzzzzz",
		Fields: []pattern.Field{
			{Name: pattern.FieldLegacyViewToken, Value: "zzzzzzzzzzzzzzz", Start: 40, End: 55},
		},
	}
	_, err := NewBuilder(Options{}).Build(context.Background(), m)
	assert.Error(t, err)
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewBuilder(Options{Source: SourceRaw})
	m := matchRaw(t, pattern.ModeBoth, prefix+"#inbox/"+newToken+"bc")

	first, err := b.Build(context.Background(), m)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, pairs(first), pairs(second))
}

func TestRecord_MarshalJSON(t *testing.T) {
	r := New()
	r.Set(KeyLine, "7")
	r.Set(KeyURL, prefix+"#inbox")
	r.Set(pattern.FieldUserNo, "0")
	r.Set(KeyLine, "8")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"line":"8","url":"`+prefix+`#inbox","user_no":"0"}`, string(data))
	assert.Equal(t, []string{KeyLine, KeyURL, pattern.FieldUserNo}, r.Keys())
	assert.Equal(t, 3, r.Len())

	// Field order survives encoding.
	assert.Regexp(t, `^\{"line":"8","url":.*"user_no":"0"\}$`, string(data))
}

func TestPrintable(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", ""},
		{`back\slash`, `back\\slash`},
		{"tab\there", `tab\there`},
		{"nl\ncr\r", `nl\ncr\r`},
		{"\x00\xff\x7f", `\x00\xff\x7f`},
		{"caf\xc3\xa9", `caf\xc3\xa9`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Printable(tt.in))
		})
	}
}
