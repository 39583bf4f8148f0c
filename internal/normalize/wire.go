// Package normalize maps backend wire shapes (GraphQL nodes, REST documents and
// MongoDB extended JSON) into the canonical types of package model.
//
// Field wrappers in this file never fail: a value the backend sends in an
// unexpected shape decodes as absent, and the per-type mapping supplies the
// default. Only a payload that is not JSON at all returns an error.
package normalize

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Now is the clock used when a timestamp has to be re-wrapped without a value.
var Now = time.Now

// ObjectID is an identifier sent as a plain string, {"$oid": s} or {"$id": s}.
type ObjectID struct {
	id string
	ok bool
}

func NewObjectID(id string) ObjectID { return ObjectID{id: id, ok: id != ""} }

func (o *ObjectID) UnmarshalJSON(b []byte) error {
	*o = ObjectID{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if json.Unmarshal(b, &s) == nil {
			*o = NewObjectID(s)
		}
	case '{':
		var m map[string]jsoniter.RawMessage
		if json.Unmarshal(b, &m) != nil {
			return nil
		}
		for _, k := range []string{"$oid", "$id"} {
			raw, ok := m[k]
			if !ok {
				continue
			}
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				*o = NewObjectID(s)
				return nil
			}
		}
	}
	return nil
}

func (o ObjectID) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(ToObjectIDRef(o.id))
}

func (o ObjectID) Valid() bool    { return o.ok }
func (o ObjectID) String() string { return o.id }

// Ptr returns nil for a missing or malformed identifier.
func (o ObjectID) Ptr() *string {
	if !o.ok {
		return nil
	}
	s := o.id
	return &s
}

// Or returns the identifier or fallback when absent.
func (o ObjectID) Or(fallback string) string {
	if !o.ok {
		return fallback
	}
	return o.id
}

// MongoDate is a timestamp sent as an ISO string, epoch milliseconds,
// {"$date": "iso"}, {"$date": ms} or {"$date": {"$numberLong": "ms"}}.
type MongoDate struct {
	t  time.Time
	ok bool
}

func NewMongoDate(t time.Time) MongoDate { return MongoDate{t: t, ok: !t.IsZero()} }

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (d *MongoDate) UnmarshalJSON(b []byte) error {
	*d = MongoDate{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if json.Unmarshal(b, &s) == nil {
			if t, ok := parseISO(s); ok {
				*d = MongoDate{t: t, ok: true}
			}
		}
	case '{':
		var m map[string]jsoniter.RawMessage
		if json.Unmarshal(b, &m) != nil {
			return nil
		}
		if raw, ok := m["$date"]; ok {
			return d.UnmarshalJSON(raw)
		}
		var n Number
		_ = n.UnmarshalJSON(b)
		if n.ok {
			*d = MongoDate{t: time.UnixMilli(int64(n.v)).UTC(), ok: true}
		}
	default:
		var n Number
		_ = n.UnmarshalJSON(b)
		if n.ok {
			*d = MongoDate{t: time.UnixMilli(int64(n.v)).UTC(), ok: true}
		}
	}
	return nil
}

func (d MongoDate) MarshalJSON() ([]byte, error) {
	if !d.ok {
		return []byte("null"), nil
	}
	return json.Marshal(ToMongoDate(d.t))
}

func (d MongoDate) Valid() bool     { return d.ok }
func (d MongoDate) Time() time.Time { return d.t }

// Or returns the timestamp or fallback when absent or malformed.
func (d MongoDate) Or(fallback time.Time) time.Time {
	if !d.ok {
		return fallback
	}
	return d.t
}

func (d MongoDate) Ptr() *time.Time {
	if !d.ok {
		return nil
	}
	t := d.t
	return &t
}

// Number is a numeric field that may arrive as a number, a numeric string or
// a Mongo {"$numberLong": ...} style wrapper.
type Number struct {
	v  float64
	ok bool
}

func NewNumber(v float64) Number { return Number{v: v, ok: true} }

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if json.Unmarshal(b, &s) == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				*n = Number{v: f, ok: true}
			}
		}
	case '{':
		var m map[string]jsoniter.RawMessage
		if json.Unmarshal(b, &m) != nil {
			return nil
		}
		for _, k := range []string{"$numberLong", "$numberInt", "$numberDouble", "$numberDecimal"} {
			if raw, ok := m[k]; ok {
				var inner Number
				_ = inner.UnmarshalJSON(raw)
				if inner.ok {
					*n = inner
					return nil
				}
			}
		}
	case 't', 'f', 'n', '[':
	default:
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			*n = Number{v: f, ok: true}
		}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.ok {
		return []byte("null"), nil
	}
	return json.Marshal(n.v)
}

func (n Number) Valid() bool { return n.ok }

func (n Number) Or(fallback float64) float64 {
	if !n.ok {
		return fallback
	}
	return n.v
}

func (n Number) IntOr(fallback int) int {
	if !n.ok {
		return fallback
	}
	return int(n.v)
}

// IntPtr returns nil when the number is absent.
func (n Number) IntPtr() *int {
	if !n.ok {
		return nil
	}
	v := int(n.v)
	return &v
}

// Flag is a boolean that tolerates "true"/"false" strings and 0/1.
type Flag struct {
	v  bool
	ok bool
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = Flag{}
	switch strings.Trim(string(bytes.TrimSpace(b)), `"`) {
	case "true", "1":
		*f = Flag{v: true, ok: true}
	case "false", "0":
		*f = Flag{v: false, ok: true}
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.v)
}

func (f Flag) Valid() bool { return f.ok }

func (f Flag) Or(fallback bool) bool {
	if !f.ok {
		return fallback
	}
	return f.v
}

// ToObjectIDRef wraps a plain id as {"$oid": id}. Empty ids wrap to nil.
func ToObjectIDRef(id string) map[string]string {
	if id == "" {
		return nil
	}
	return map[string]string{"$oid": id}
}

// ToMongoDate wraps t as {"$date": {"$numberLong": "<ms>"}}. A zero time wraps
// the current time.
func ToMongoDate(t time.Time) map[string]map[string]string {
	if t.IsZero() {
		t = Now()
	}
	return map[string]map[string]string{
		"$date": {"$numberLong": strconv.FormatInt(t.UnixMilli(), 10)},
	}
}

// ToMongoDateISO is ToMongoDate over an ISO string; unparseable input wraps now.
func ToMongoDateISO(iso string) map[string]map[string]string {
	t, _ := parseISO(iso)
	return ToMongoDate(t)
}

// DisplayDate formats t for display, "Unknown" when absent.
func DisplayDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}

// firstNonEmpty returns the first non-empty candidate.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
