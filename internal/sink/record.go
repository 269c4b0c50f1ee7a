package sink

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Recorder writes frames as a CBOR sequence, one data item per frame
type Recorder struct {
	w   io.Writer
	enc *cbor.Encoder
}

// NewRecorder returns a Recorder writing to w. If w is an io.Closer it is
// closed by Close
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: w, enc: cbor.NewEncoder(w)}
}

// Send encodes f onto the stream
func (r *Recorder) Send(f *Frame) error {
	if err := r.enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", f.Seq, err)
	}
	return nil
}

// Close closes the underlying writer when it supports it
func (r *Recorder) Close() error {
	if c, ok := r.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reader decodes a CBOR sequence written by a Recorder
type Reader struct {
	dec *cbor.Decoder
}

// NewReader returns a Reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next frame, io.EOF at a clean end of stream
func (r *Reader) Next() (*Frame, error) {
	var f Frame

	if err := r.dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode CBOR frame: %w", err)
	}

	return &f, nil
}
