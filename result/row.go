/*
 * ledgergraph
 *
 * Package result renders command output as the flat JSON array of
 * objects the console writes to stdout (component I, §4.I).
 */
package result

import (
	"bytes"
	"encoding/json"
)

/*
Row is a single result row: an ordered set of string key/value pairs.
Go maps do not preserve insertion order, so Row keeps keys and values in
parallel slices and marshals them itself (§4.I "keys in insertion
order").
*/
type Row struct {
	keys   []string
	values []string
}

/*
NewRow creates an empty row.
*/
func NewRow() *Row {
	return &Row{}
}

/*
Set appends a key/value pair, or overwrites the value of a key already
present without changing its position.
*/
func (r *Row) Set(key, value string) *Row {
	for i, k := range r.keys {
		if k == key {
			r.values[i] = value
			return r
		}
	}
	r.keys = append(r.keys, key)
	r.values = append(r.values, value)
	return r
}

/*
Len returns the number of keys in the row.
*/
func (r *Row) Len() int {
	return len(r.keys)
}

/*
Value returns the value set for key and whether it was present.
*/
func (r *Row) Value(key string) (string, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}
	return "", false
}

/*
MarshalJSON renders the row as a JSON object with keys in insertion
order - the one thing encoding/json cannot do for a plain map, so Row
builds the object body by hand instead of going through json.Marshal
on a map (mirrors the teacher's api/v1 endpoints hand-assembling
response bodies where field order matters).
*/
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}

		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

/*
Set is a convenience list of rows; it marshals to a JSON array even
when empty or nil.
*/
type Set []*Row

/*
MarshalJSON renders an empty or nil Set as "[]" rather than the bare
"null" encoding/json gives a nil slice, matching the "no rows" shape
required by §9's resolved empty-fetch-result open question.
*/
func (s Set) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("[]"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, row := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := row.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

/*
ErrorRow builds the single-element error result §7 requires every
caught error to produce.
*/
func ErrorRow(msg string) Set {
	return Set{NewRow().Set("error", msg)}
}
