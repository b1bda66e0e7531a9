package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-ledger/ledger"
)

// fields is a decoded JSON object. Numbers are kept as json.Number so that
// re-encoding a mutated document does not reformat untouched values.
type fields map[string]any

func parse(raw []byte) (fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var f fields
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("failed to parse document: not a JSON object")
	}
	return f, nil
}

// str returns the first non-empty string among keys. Numbers are accepted as
// identifiers, and an object with an "id" member stands for that id.
func (f fields) str(keys ...string) string {
	for _, k := range keys {
		switch v := f[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case map[string]any:
			if id := fields(v).str("id"); id != "" {
				return id
			}
		}
	}
	return ""
}

// num returns the first value among keys that parses as a number, or zero.
func (f fields) num(keys ...string) decimal.Decimal {
	for _, k := range keys {
		v, ok := f[k]
		if !ok || v == nil {
			continue
		}
		if d, err := ParseDecimal(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// time returns the first value among keys that parses as a timestamp. A
// bare date (midnight) gives way to a later key carrying a time of day on
// the same date, so "date" plus "dateTime" keeps the precise one.
func (f fields) time(keys ...string) (time.Time, bool) {
	var (
		found time.Time
		ok    bool
	)
	for _, k := range keys {
		t, parsed := ParseTime(f[k])
		if !parsed {
			continue
		}
		if !ok {
			found, ok = t, true
			if !midnight(found) {
				return found, true
			}
			continue
		}
		if !midnight(t) && sameDay(found, t) {
			return t, true
		}
	}
	return found, ok
}

func midnight(t time.Time) bool {
	return t.Equal(t.Truncate(24 * time.Hour))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// has reports whether key is present with a non-null value.
func (f fields) has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

func (f fields) timePtr(keys ...string) *time.Time {
	t, ok := f.time(keys...)
	if !ok {
		return nil
	}
	return &t
}

func (f fields) obj(key string) fields {
	if m, ok := f[key].(map[string]any); ok {
		return fields(m)
	}
	return fields{}
}

// list returns the objects of the first array found among keys. Non-object
// elements are dropped.
func (f fields) list(keys ...string) []fields {
	for _, k := range keys {
		arr, ok := f[k].([]any)
		if !ok {
			continue
		}
		out := make([]fields, 0, len(arr))
		for _, el := range arr {
			if m, ok := el.(map[string]any); ok {
				out = append(out, fields(m))
			}
		}
		return out
	}
	return nil
}

// =============================================================================
// NUMERICS
// =============================================================================

// ParseDecimal converts a JSON value to a decimal. Numbers and numeric
// strings are accepted; anything else wraps ledger.ErrMalformedNumeric.
func ParseDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return parseNumericString(n.String())
	case string:
		return parseNumericString(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("%v: %w", n, ledger.ErrMalformedNumeric)
		}
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	}
	return decimal.Zero, fmt.Errorf("%T: %w", v, ledger.ErrMalformedNumeric)
}

func parseNumericString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty: %w", ledger.ErrMalformedNumeric)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, ledger.ErrMalformedNumeric)
	}
	return d, nil
}

// =============================================================================
// TIMESTAMPS
// =============================================================================

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// epochSecondsLimit separates epoch seconds from epoch milliseconds.
// 1e11 seconds is the year 5138; 1e11 milliseconds is 1973.
const epochSecondsLimit = 1e11

// ParseTime converts a JSON value to a UTC timestamp. Accepted shapes are
// date/time strings, epoch seconds or milliseconds, and server timestamp
// objects ({seconds, nanoseconds} or {_seconds, _nanoseconds}).
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromEpoch(n), true
		}
		if f, err := t.Float64(); err == nil {
			return fromEpoch(int64(f)), true
		}
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return fromEpoch(int64(t)), true
		}
	case map[string]any:
		obj := fields(t)
		for _, pair := range [][2]string{{"seconds", "nanoseconds"}, {"_seconds", "_nanoseconds"}} {
			if _, ok := obj[pair[0]]; !ok {
				continue
			}
			sec := obj.num(pair[0])
			nsec := obj.num(pair[1])
			return time.Unix(sec.IntPart(), nsec.IntPart()).UTC(), true
		}
	}
	return time.Time{}, false
}

func fromEpoch(n int64) time.Time {
	if n > -epochSecondsLimit && n < epochSecondsLimit {
		return time.Unix(n, 0).UTC()
	}
	return time.UnixMilli(n).UTC()
}
