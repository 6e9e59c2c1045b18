// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// sample.go

package decoder

import "go.mongodb.org/mongo-driver/bson/primitive"

// Sample is one time-indexed observation, an ordered nested mapping from
// string keys to leaf values. It reuses mongo-driver's own ordered BSON
// document type so a decoded sample can be re-marshaled as BSON or JSON
// without an intermediate conversion.
type Sample = primitive.D

// Kind identifies the original BSON leaf type backing one metric column,
// which determines how its int64-encoded running value is materialized
// back onto a Sample.
type Kind int

// Leaf kinds recognized by FTDC-mode decoding. Every other BSON type is
// dropped during reference-document traversal (see reference.go).
const (
	KindInt64 Kind = iota
	KindBool
	KindDateTime
)

// materialize converts a column's accumulated int64 running value back to
// its native leaf type for inclusion in a yielded Sample.
func (k Kind) materialize(v int64) interface{} {
	switch k {
	case KindBool:
		return v != 0
	case KindDateTime:
		return primitive.DateTime(v)
	default:
		return v
	}
}

// Get looks up a (possibly nested) key path in a Sample, returning false if
// any segment is absent.
func Get(s Sample, path ...string) (interface{}, bool) {
	var cur interface{} = s
	for _, key := range path {
		doc, ok := cur.(Sample)
		if !ok {
			return nil, false
		}
		found := false
		for _, el := range doc {
			if el.Key == key {
				cur = el.Value
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return cur, true
}

// GetInt64 looks up an int64-valued leaf, coercing bool and datetime leaves
// the same way they were encoded.
func GetInt64(s Sample, path ...string) (int64, bool) {
	v, ok := Get(s, path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case primitive.DateTime:
		return int64(n), true
	default:
		return 0, false
	}
}
