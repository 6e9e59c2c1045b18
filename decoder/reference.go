// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// reference.go

package decoder

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// column is one Metric Column: a key path, its original leaf kind, and the
// values accumulated for it over one chunk (values[0] is the coerced
// reference-document leaf).
type column struct {
	path   []string
	kind   Kind
	values []int64
}

// buildColumns walks a reference document in pre-order, depth-first,
// insertion order and returns one column per leaf whose BSON type is one
// of {int32, int64, double, bool, datetime}. Every other type (string,
// binary, objectID, timestamp, minkey, maxkey, ...) is silently dropped,
// mirroring the teacher's traverseDocElem default case.
func buildColumns(ref primitive.D, deltaCount uint32) ([]*column, error) {
	cols := make([]*column, 0, len(ref))
	appendLeaf := func(path []string, kind Kind, v int64) {
		values := make([]int64, 1, deltaCount+1)
		values[0] = v
		cols = append(cols, &column{
			path:   append([]string(nil), path...),
			kind:   kind,
			values: values,
		})
	}
	var walk func(v interface{}, path []string) error
	walk = func(v interface{}, path []string) error {
		switch t := v.(type) {
		case primitive.D:
			for _, el := range t {
				if err := walk(el.Value, append(path, el.Key)); err != nil {
					return err
				}
			}
		case primitive.A:
			for i, el := range t {
				if err := walk(el, append(path, strconv.Itoa(i))); err != nil {
					return err
				}
			}
		case bool:
			n := int64(0)
			if t {
				n = 1
			}
			appendLeaf(path, KindBool, n)
		case int32:
			appendLeaf(path, KindInt64, int64(t))
		case int64:
			appendLeaf(path, KindInt64, t)
		case float64:
			appendLeaf(path, KindInt64, int64(t)) // truncated toward zero
		case primitive.DateTime:
			appendLeaf(path, KindDateTime, int64(t))
		default:
			// not a metric: string, primitive.Binary, primitive.ObjectID,
			// primitive.Timestamp, primitive.MinKey/MaxKey, nil, ...
		}
		return nil
	}
	if err := walk(ref, nil); err != nil {
		return nil, err
	}
	return cols, nil
}

// transpose reconstructs the Sample at index i by placing each column's
// i'th value at its key path, mirroring the reference document's nested
// structure.
func transpose(ref primitive.D, cols []*column, i int) Sample {
	byPath := make(map[string]*column, len(cols))
	for _, c := range cols {
		byPath[pathKey(c.path)] = c
	}
	var build func(v interface{}, path []string) (interface{}, bool)
	build = func(v interface{}, path []string) (interface{}, bool) {
		switch t := v.(type) {
		case primitive.D:
			out := make(primitive.D, 0, len(t))
			for _, el := range t {
				if child, ok := build(el.Value, append(path, el.Key)); ok {
					out = append(out, primitive.E{Key: el.Key, Value: child})
				}
			}
			return out, true
		case primitive.A:
			out := make(primitive.A, 0, len(t))
			for idx, el := range t {
				if child, ok := build(el, append(path, strconv.Itoa(idx))); ok {
					out = append(out, child)
				}
			}
			return out, true
		default:
			if c, ok := byPath[pathKey(path)]; ok {
				return c.kind.materialize(c.values[i]), true
			}
			return nil, false
		}
	}
	doc, _ := build(ref, nil)
	if d, ok := doc.(primitive.D); ok {
		return d
	}
	return Sample{}
}

func pathKey(path []string) string {
	// "/" never appears in BSON field names produced by the diagnostic
	// writers this format targets, so a plain join is a safe, cheap key.
	s := ""
	for i, p := range path {
		if i > 0 {
			s += "/"
		}
		s += p
	}
	return s
}
