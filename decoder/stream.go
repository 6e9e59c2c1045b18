// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// stream.go

package decoder

import (
	"bytes"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// envelope is the general-mode (not FTDC-mode) shape of one top-level BSON
// document in an FTDC stream.
type envelope struct {
	Type int32            `bson:"type"`
	Data primitive.Binary `bson:"data,omitempty"`
}

const chunkType = int32(1)

// Status describes the outcome of one FeedDecoder.NextSample call.
type Status int

const (
	// Ready means Sample is valid.
	Ready Status = iota
	// NeedMore means the buffer doesn't yet hold a full envelope; call
	// Feed with more bytes and try again.
	NeedMore
	// End means the buffer is empty: every byte fed so far has been
	// consumed, ending exactly on an envelope boundary.
	End
)

// FeedDecoder is the explicit pull-based state machine called for by
// design note §9: bytes arrive via Feed, Samples are pulled one at a time
// via NextSample. It never blocks and never owns a byte source itself,
// which makes it usable from a non-blocking byte-chunk producer as well as
// from the io.Reader-based StreamDecoder below.
type FeedDecoder struct {
	buf      []byte
	bound    int // 0 means "use the 5x heuristic"
	sawFirst bool
	pending  []Sample // samples already decoded from the current chunk, not yet returned
}

// NewFeedDecoder returns a FeedDecoder. bound <= 0 selects the advisory
// heuristic from spec.md §4.4 (5x the first observed document length);
// bound > 0 is a hard ceiling enforced on every document.
func NewFeedDecoder(bound int) *FeedDecoder {
	return &FeedDecoder{bound: bound}
}

// Feed appends more bytes to the internal frame buffer.
func (f *FeedDecoder) Feed(b []byte) {
	f.buf = append(f.buf, b...)
}

// NextSample pulls the next decoded Sample, if one is available without
// requesting more bytes.
func (f *FeedDecoder) NextSample() (Sample, Status, error) {
	for {
		if len(f.pending) > 0 {
			s := f.pending[0]
			f.pending = f.pending[1:]
			return s, Ready, nil
		}
		samples, status, err := f.advance()
		if err != nil {
			return nil, 0, err
		}
		if status == NeedMore {
			return nil, NeedMore, nil
		}
		if status == End {
			return nil, End, nil
		}
		if len(samples) == 0 {
			continue // non-chunk envelope consumed; look for more
		}
		f.pending = samples
	}
}

// advance consumes exactly one top-level BSON envelope from the buffer, if
// fully present, returning the Samples it produced (empty for non-chunk
// envelopes).
func (f *FeedDecoder) advance() ([]Sample, Status, error) {
	if len(f.buf) == 0 {
		return nil, End, nil
	}
	if len(f.buf) < 4 {
		return nil, NeedMore, nil
	}
	docLen := int(uint32(f.buf[0]) | uint32(f.buf[1])<<8 | uint32(f.buf[2])<<16 | uint32(f.buf[3])<<24)
	if docLen < 4 {
		return nil, 0, newError(BadLength, "envelope declares an impossible length")
	}
	limit := f.effectiveBound(docLen)
	if limit > 0 && docLen > limit {
		return nil, 0, newError(OverBudget, "envelope exceeds configured memory bound")
	}
	if len(f.buf) < docLen {
		return nil, NeedMore, nil
	}

	raw := f.buf[:docLen]
	f.buf = f.buf[docLen:]

	var env envelope
	if err := bson.Unmarshal(raw, &env); err != nil {
		return nil, 0, wrapError(Truncated, "envelope is not a valid BSON document", err)
	}
	if env.Type != chunkType || len(env.Data.Data) == 0 {
		return nil, Ready, nil
	}
	samples, err := decodeChunk(env.Data.Data)
	if err != nil {
		return nil, 0, err
	}
	return samples, Ready, nil
}

func (f *FeedDecoder) effectiveBound(firstDocLen int) int {
	if f.bound > 0 {
		return f.bound
	}
	if !f.sawFirst {
		f.sawFirst = true
		f.bound = firstDocLen * 5
	}
	return f.bound
}

// StreamDecoder reads successive top-level BSON envelopes from an
// io.Reader, yielding the Samples of every chunk envelope in order and
// silently skipping metadata envelopes. It is implemented on top of
// FeedDecoder: bytes are pulled from r, up to 32 KiB per Read, whenever the
// state machine reports End or NeedMore and r has not yet reported io.EOF.
type StreamDecoder struct {
	r    io.Reader
	feed *FeedDecoder
	eof  bool
}

// NewStreamDecoder returns a StreamDecoder reading from r. bound is passed
// through to the underlying FeedDecoder (see NewFeedDecoder).
func NewStreamDecoder(r io.Reader, bound int) *StreamDecoder {
	return &StreamDecoder{r: r, feed: NewFeedDecoder(bound)}
}

// NewBufferedStreamDecoder is a convenience constructor over a fully
// buffered byte slice; it never blocks and never requests more bytes.
func NewBufferedStreamDecoder(buf []byte, bound int) *StreamDecoder {
	return NewStreamDecoder(bytes.NewReader(buf), bound)
}

// Next returns the next Sample in stream order, io.EOF once the input ends
// cleanly between envelopes, or a decode error (including Truncated for
// input that ends mid-envelope).
func (d *StreamDecoder) Next() (Sample, error) {
	for {
		s, status, err := d.feed.NextSample()
		if err != nil {
			return nil, err
		}
		if status == Ready {
			return s, nil
		}
		if d.eof {
			if status == End {
				return nil, io.EOF
			}
			return nil, newError(Truncated, "input ended mid-envelope")
		}
		if err := d.pull(); err != nil {
			return nil, err
		}
	}
}

// pull requests more bytes from the underlying reader. io.EOF is recorded
// rather than returned, so Next can tell a clean end between envelopes
// (empty buffer) from input that ends mid-envelope (Truncated).
func (d *StreamDecoder) pull() error {
	buf := make([]byte, 32*1024)
	n, err := d.r.Read(buf)
	if n > 0 {
		d.feed.Feed(buf[:n])
	}
	if err == nil {
		return nil
	}
	if err == io.EOF {
		d.eof = true
		return nil
	}
	return wrapError(Truncated, "error reading from stream", err)
}

func (f *FeedDecoder) bufLen() int { return len(f.buf) }
