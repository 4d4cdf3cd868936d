package records

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// Record is one JSON object of the document. Numbers decode as json.Number
// so they are written back exactly as read. Field order is not kept: every
// write emits the keys of a record in sorted order, while values and the
// order of records survive.
type Record map[string]any

// Predicate selects records.
type Predicate func(Record) bool

// Mutation changes a record in place.
type Mutation func(Record)

// ByField matches records whose field equals value. Numbers compare by value
// regardless of their Go type; strings only match strings.
func ByField(field string, value any) Predicate {
	return func(r Record) bool {
		v, ok := r[field]
		return ok && valuesEqual(v, value)
	}
}

// ByName matches records by their "name" field.
func ByName(name string) Predicate {
	return ByField("name", name)
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(r Record) bool { return !p(r) }
}

// Set assigns value to field.
func Set(field string, value any) Mutation {
	return func(r Record) {
		r[field] = value
	}
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func valuesEqual(a, b any) bool {
	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	if aIsString || bIsString {
		return aIsString && bIsString && as == bs
	}
	an, aIsNum := number(a)
	bn, bIsNum := number(b)
	if aIsNum && bIsNum {
		return an == bn
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
