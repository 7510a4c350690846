package timestamp

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/gmailurl/internal/codec"
)

// DefaultTimebase converts a token counter into seconds since the Unix epoch.
const DefaultTimebase uint64 = 1_048_576_000

// CounterDigits is the number of decimal digits read after an identifier marker.
// Eighteen digits would date before Gmail's 2004 launch.
const CounterDigits = 19

// Layout renders whole seconds; Format appends microseconds when non-zero.
const Layout = "2006-01-02 15:04:05"

// Stamp is a timestamp found behind an identifier marker.
type Stamp struct {
	Marker string
	Time   time.Time
}

// Extractor turns token counters into UTC times.
type Extractor struct {
	timebase uint64
}

// New returns an Extractor for the given timebase; zero selects DefaultTimebase.
func New(timebase uint64) *Extractor {
	if timebase == 0 {
		timebase = DefaultTimebase
	}
	return &Extractor{timebase: timebase}
}

// Timebase returns the divisor in use.
func (e *Extractor) Timebase() uint64 {
	return e.timebase
}

// FromCounter converts a counter into a UTC time rounded to the microsecond.
func (e *Extractor) FromCounter(n uint64) time.Time {
	sec := n / e.timebase
	rem := n % e.timebase
	hi, lo := bits.Mul64(rem, uint64(time.Second))
	nsec, _ := bits.Div64(hi, lo, e.timebase) // rem < timebase keeps the quotient in range
	return time.Unix(int64(sec), int64(nsec)).UTC().Round(time.Microsecond)
}

// FromLegacyToken parses a hexadecimal legacy token and converts it.
func (e *Extractor) FromLegacyToken(token string) (time.Time, error) {
	n, err := strconv.ParseUint(token, 16, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse legacy token %q: %w", token, err)
	}
	return e.FromCounter(n), nil
}

// FromIdentifier returns one Stamp per marker present in id, in codec.Markers
// order. A marker whose following characters are not digits yields nothing.
func (e *Extractor) FromIdentifier(id codec.Identifier) []Stamp {
	var stamps []Stamp
	text := id.String()
	for _, marker := range codec.Markers {
		off := strings.Index(text, marker)
		if off < 0 {
			continue
		}
		n, ok := readCounter(text[off+len(marker):])
		if !ok {
			continue
		}
		stamps = append(stamps, Stamp{Marker: marker, Time: e.FromCounter(n)})
	}
	return stamps
}

// readCounter parses up to CounterDigits leading characters of s, all of which must be digits.
func readCounter(s string) (uint64, bool) {
	if len(s) > CounterDigits {
		s = s[:CounterDigits]
	}
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Format renders t as "YYYY-MM-DD HH:MM:SS" with a ".ffffff" suffix when
// the microsecond part is non-zero.
func Format(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/1000 == 0 {
		return t.Format(Layout)
	}
	return t.Format(Layout + ".000000")
}
