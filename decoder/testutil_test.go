// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// testutil_test.go

package decoder

import (
	"bytes"
	"compress/zlib"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// encodeVarint is the inverse of readVarint: emit 7 bits per byte,
// little-endian, continuing while bits remain, reinterpreting v's bit
// pattern as the unsigned accumulator (matching the signed reinterpretation
// readVarint performs on decode).
func encodeVarint(v int64) []byte {
	u := uint64(v)
	var out []byte
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// buildChunkPayload assembles the decompressed payload of one FTDC chunk:
// reference document, metric_count, delta_count, then deltaCount varints
// per column in order (columns inferred from the pre-order leaf traversal
// of ref, matching buildColumns).
func buildChunkPayload(t testingT, ref primitive.D, metricCountOverride int, deltasByColumn [][]int64) []byte {
	refBytes, err := bson.Marshal(ref)
	if err != nil {
		t.Fatalf("marshal ref doc: %v", err)
	}
	deltaCount := 0
	if len(deltasByColumn) > 0 {
		deltaCount = len(deltasByColumn[0])
	}
	cols, err := buildColumns(ref, uint32(deltaCount))
	if err != nil {
		t.Fatalf("buildColumns: %v", err)
	}
	metricCount := metricCountOverride
	if metricCount < 0 {
		metricCount = len(cols)
	}

	var buf bytes.Buffer
	buf.Write(refBytes)
	buf.Write(leUint32(uint32(metricCount)))
	buf.Write(leUint32(uint32(deltaCount)))
	for _, deltas := range deltasByColumn {
		for _, d := range deltas {
			buf.Write(encodeVarint(d))
			if d == 0 {
				// Every literal zero delta must be followed by a run-length
				// varint; zero run length means "just this one zero".
				buf.Write(encodeVarint(0))
			}
		}
	}
	return buf.Bytes()
}

func leUint32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// buildChunkDataField produces the "data" binary field content of a chunk
// envelope: a 4-byte advisory uncompressed-length header followed by a
// zlib stream of payload.
func buildChunkDataField(t testingT, payload []byte) []byte {
	var zbuf bytes.Buffer
	w := zlib.NewWriter(&zbuf)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	out := make([]byte, 0, 4+zbuf.Len())
	out = append(out, leUint32(uint32(len(payload)))...)
	out = append(out, zbuf.Bytes()...)
	return out
}

// buildChunkEnvelope wraps a chunk data field in a top-level BSON envelope
// with type == 1, the shape the Stream Decoder consumes.
func buildChunkEnvelope(t testingT, dataField []byte) []byte {
	doc := primitive.D{
		{Key: "type", Value: int32(1)},
		{Key: "data", Value: primitive.Binary{Subtype: 0x00, Data: dataField}},
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

// testingT is the subset of *testing.T these helpers need, so they can
// also be used from table-driven subtests via t.Run's *testing.T.
type testingT interface {
	Fatalf(format string, args ...interface{})
}
