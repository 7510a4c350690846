package record

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Position field names.
const (
	KeyLine   = "line"
	KeyOffset = "offset"
	KeyURL    = "url"
)

// Prefixes of derived field names.
const (
	PrefixDecoded   = "dec_"
	PrefixTimestamp = "timestamp"
)

// Record is an ordered set of string fields describing one URL.
type Record struct {
	fields *orderedmap.OrderedMap[string, string]
}

// New returns an empty Record.
func New() *Record {
	return &Record{fields: orderedmap.New[string, string]()}
}

// Set stores value under key. A new key is appended; an existing key keeps its place.
func (r *Record) Set(key, value string) {
	r.fields.Set(key, value)
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (string, bool) {
	return r.fields.Get(key)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return r.fields.Len()
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.fields.MarshalJSON()
}
