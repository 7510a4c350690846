package record

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/teemow/gmailurl/internal/codec"
	"github.com/teemow/gmailurl/internal/correct"
	"github.com/teemow/gmailurl/internal/logging"
	"github.com/teemow/gmailurl/internal/pattern"
	"github.com/teemow/gmailurl/internal/timestamp"
)

// Source identifies the kind of input a Match came from.
type Source string

const (
	// SourceText is line-oriented text; positions are line numbers.
	SourceText Source = "text"

	// SourceRaw is unstructured binary data; positions are byte offsets.
	SourceRaw Source = "raw"
)

// Observer is notified about token repairs and decode failures.
type Observer interface {
	TokenCorrected(ctx context.Context, field string)
	DecodeFailed(ctx context.Context, field string)
}

type nopObserver struct{}

func (nopObserver) TokenCorrected(context.Context, string) {}
func (nopObserver) DecodeFailed(context.Context, string) {}

// Options configures a Builder.
type Options struct {
	// Source selects position rendering and whether tokens are corrected.
	Source Source

	// Corrector repairs raw captures. Defaults to correct.New(correct.Options{}).
	Corrector *correct.Corrector

	// Decoder decodes new-format tokens. Defaults to codec.Default.
	Decoder correct.Decoder

	// Timestamps converts token counters. Defaults to timestamp.New(0).
	Timestamps *timestamp.Extractor

	// Observer receives correction and decode events. Optional.
	Observer Observer

	// Logger receives debug logs for corrections and decode failures.
	// Defaults to a discarding logger.
	Logger logging.Logger
}

// Builder turns Matches into Records. It holds no per-match state and is
// safe for concurrent use.
type Builder struct {
	source     Source
	corrector  *correct.Corrector
	decoder    correct.Decoder
	timestamps *timestamp.Extractor
	observer   Observer
	logger     logging.Logger
}

// NewBuilder returns a Builder, filling unset options with defaults.
func NewBuilder(opts Options) *Builder {
	b := &Builder{
		source:     opts.Source,
		corrector:  opts.Corrector,
		decoder:    opts.Decoder,
		timestamps: opts.Timestamps,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
	if b.source == "" {
		b.source = SourceText
	}
	if b.decoder == nil {
		b.decoder = codec.Default
	}
	if b.corrector == nil {
		b.corrector = correct.New(correct.Options{Decoder: b.decoder})
	}
	if b.timestamps == nil {
		b.timestamps = timestamp.New(0)
	}
	if b.observer == nil {
		b.observer = nopObserver{}
	}
	if b.logger == nil {
		b.logger = logging.Discard()
	}
	return b
}

// token is a captured field after correction.
type token struct {
	pattern.Field
	decoded *correct.Result
}

// Build assembles the Record for m. It fails only when a captured legacy
// token is not hexadecimal, which the grammar rules out.
func (b *Builder) Build(ctx context.Context, m *pattern.Match) (*Record, error) {
	fields := make([]token, len(m.Fields))
	for i, f := range m.Fields {
		fields[i] = token{Field: f}
	}
	if b.source == SourceRaw {
		b.correct(ctx, m, fields)
	}

	rec := New()
	if b.source == SourceRaw {
		rec.Set(KeyOffset, fmt.Sprintf("%#x", m.Offset))
	} else {
		rec.Set(KeyLine, strconv.Itoa(m.Line))
	}
	rec.Set(KeyURL, b.render(splice(m.Text, fields)))

	for _, f := range fields {
		rec.Set(f.Name, b.render(f.Value))

		switch f.Name {
		case pattern.FieldLegacyViewToken:
			ts, err := b.timestamps.FromLegacyToken(f.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			rec.Set(PrefixTimestamp+"_"+f.Name, timestamp.Format(ts))

		case pattern.FieldLegacyComposeToken:
			if err := b.composeTimestamps(rec, f.Name, f.Value); err != nil {
				return nil, err
			}

		case pattern.FieldNewViewToken, pattern.FieldNewComposeToken:
			id, ok := b.decode(ctx, f)
			if !ok {
				continue
			}
			rec.Set(PrefixDecoded+f.Name, id.String())
			for _, s := range b.timestamps.FromIdentifier(id) {
				rec.Set(PrefixTimestamp+"_"+f.Name+"_"+s.Marker, timestamp.Format(s.Time))
			}
		}
	}
	return rec, nil
}

// correct repairs raw captures in place. A view token is only repaired when no
// compose token of the same format follows, since the compose marker already
// bounds it.
func (b *Builder) correct(ctx context.Context, m *pattern.Match, fields []token) {
	for i := range fields {
		f := &fields[i]
		before := f.Value

		switch f.Name {
		case pattern.FieldLegacyComposeToken:
			f.Value = b.corrector.LegacyCompose(f.Value)
		case pattern.FieldLegacyViewToken:
			if !m.Has(pattern.FieldLegacyComposeToken) {
				f.Value = b.corrector.LegacyView(f.Value)
			}
		case pattern.FieldNewComposeToken:
			res := b.corrector.NewToken(f.Value)
			f.Value, f.decoded = res.Token, &res
		case pattern.FieldNewViewToken:
			if !m.Has(pattern.FieldNewComposeToken) {
				res := b.corrector.NewToken(f.Value)
				f.Value, f.decoded = res.Token, &res
			}
		}

		if f.Value != before {
			b.observer.TokenCorrected(ctx, f.Name)
			b.logger.Debug("token corrected",
				logging.Field(f.Name),
				logging.Token(before),
				"trimmed", len(before)-len(f.Value))
		}
	}
}

func (b *Builder) decode(ctx context.Context, f token) (codec.Identifier, bool) {
	if f.decoded != nil {
		if !f.decoded.Decoded {
			b.decodeFailed(ctx, f, nil)
		}
		return f.decoded.Identifier, f.decoded.Decoded
	}
	id, err := b.decoder.Decode(f.Value)
	if err != nil {
		b.decodeFailed(ctx, f, err)
		return "", false
	}
	return id, true
}

func (b *Builder) decodeFailed(ctx context.Context, f token, err error) {
	b.observer.DecodeFailed(ctx, f.Name)
	b.logger.Debug("decode failed",
		logging.Field(f.Name),
		logging.Token(f.Value),
		logging.Err(err))
}

func (b *Builder) composeTimestamps(rec *Record, name, list string) error {
	parts := strings.Split(list, correct.ComposeSeparator)
	for i, part := range parts {
		ts, err := b.timestamps.FromLegacyToken(part)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		key := PrefixTimestamp + "_" + name
		if len(parts) > 1 {
			key = PrefixTimestamp + strconv.Itoa(i+1) + "_" + name
		}
		rec.Set(key, timestamp.Format(ts))
	}
	return nil
}

func (b *Builder) render(s string) string {
	if b.source == SourceRaw {
		return Printable(s)
	}
	return s
}

// splice rewrites text so each field span holds the field's current value.
func splice(text string, fields []token) string {
	changed := make([]token, 0, len(fields))
	for _, f := range fields {
		if text[f.Start:f.End] != f.Value {
			changed = append(changed, f)
		}
	}
	if len(changed) == 0 {
		return text
	}
	sort.Slice(changed, func(i, j int) bool {
		return changed[i].Start > changed[j].Start
	})
	for _, f := range changed {
		text = text[:f.Start] + f.Value + text[f.End:]
	}
	return text
}

// Printable renders raw bytes as text: printable ASCII is kept, backslash and
// common control characters are escaped, and any other byte becomes \xNN.
func Printable(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c > 0x7e || c == '\\' {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c < 0x20 || c > 0x7e:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
