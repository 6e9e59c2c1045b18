// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// chunk.go

package decoder

import (
	"bytes"
	"compress/zlib"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// decodeChunk decodes one chunk envelope's "data" binary field into its
// in-order sequence of Samples, per spec.md §4.3.
func decodeChunk(dataField []byte) ([]Sample, error) {
	if len(dataField) < 4 {
		return nil, newError(Truncated, "chunk data shorter than uncompressed-length header")
	}
	payload, err := inflate(dataField[4:])
	if err != nil {
		return nil, err
	}

	c := newCursor(payload)
	docLen, err := peekBSONLength(c)
	if err != nil {
		return nil, err
	}
	if docLen > c.remaining() {
		return nil, newError(BadLength, "reference document length exceeds payload")
	}
	refBytes := payload[c.pos : c.pos+docLen]
	c.pos += docLen

	var ref primitive.D
	if err := bson.Unmarshal(refBytes, &ref); err != nil {
		return nil, wrapError(BadType, "reference document is not valid BSON", err)
	}

	metricCount, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	deltaCount, err := c.readUint32()
	if err != nil {
		return nil, err
	}

	cols, err := buildColumns(ref, deltaCount)
	if err != nil {
		return nil, err
	}
	if int(metricCount) != len(cols) {
		return nil, newError(SchemaMismatch, "metric_count header disagrees with reference document leaf count")
	}

	if metricCount == 0 {
		return nil, nil
	}

	if err := fillColumns(c, cols, deltaCount); err != nil {
		return nil, err
	}

	if c.remaining() != 0 {
		return nil, newError(TrailingBytes, "payload has unconsumed bytes after all deltas")
	}

	samples := make([]Sample, deltaCount+1)
	for i := range samples {
		samples[i] = transpose(ref, cols, i)
	}
	return samples, nil
}

// fillColumns performs the column fill pass of spec.md §4.3 step 5: a
// single zeroesPending scalar is shared across all columns, so a zero-run
// marker started near the end of one column can carry into the next.
func fillColumns(c *cursor, cols []*column, deltaCount uint32) error {
	var zeroesPending int64
	for _, col := range cols {
		prev := col.values[0]
		for j := uint32(0); j < deltaCount; j++ {
			var delta int64
			if zeroesPending > 0 {
				delta = 0
				zeroesPending--
			} else {
				v, err := readVarint(c)
				if err != nil {
					return err
				}
				delta = v
				if delta == 0 {
					run, err := readVarint(c)
					if err != nil {
						return err
					}
					zeroesPending = run
				}
			}
			prev += delta
			col.values = append(col.values, prev)
		}
	}
	return nil
}

// peekBSONLength reads, without advancing the cursor, the 4-byte
// little-endian document length at the cursor's current position.
func peekBSONLength(c *cursor) (int, error) {
	if c.remaining() < 4 {
		return 0, newError(Truncated, "reference document length prefix truncated")
	}
	b := c.buf[c.pos : c.pos+4]
	n := int(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	if n < 4 || n > c.remaining() {
		return 0, newError(BadLength, "declared BSON document length out of range")
	}
	return n, nil
}

func inflate(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, wrapError(DecompressionFailed, "zlib header invalid", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapError(DecompressionFailed, "zlib stream corrupt", err)
	}
	return out, nil
}
