package opus

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jonas747/dca"
)

const (
	dcaPrefixSize  = 8
	maxDCAMetadata = 1 << 20
)

var errDCAFrameSize = errors.New("dca frame length is out of range")

type dcaResource struct {
	br      *bufio.Reader
	decoder *dca.Decoder
	closer  io.Closer
}

// newDCAResource reads the DCA header through br. The decoder shares br,
// so bytes already peeked during classification are not lost.
func newDCAResource(br *bufio.Reader, closer io.Closer) (Resource, error) {
	prefix, err := br.Peek(dcaPrefixSize)
	if err != nil {
		return nil, &ProbeError{Reason: "stream ended inside the dca header", Err: err}
	}
	metadataLen := int32(binary.LittleEndian.Uint32(prefix[len(dcaMagic):]))
	if metadataLen <= 0 || metadataLen > maxDCAMetadata {
		return nil, &ProbeError{Reason: fmt.Sprintf("dca metadata length %d is out of range", metadataLen)}
	}

	decoder := dca.NewDecoder(br)
	if err := decoder.ReadMetadata(); err != nil {
		return nil, &ProbeError{Reason: "unable to read the dca metadata", Err: err}
	}

	return &dcaResource{br: br, decoder: decoder, closer: closer}, nil
}

// ReadFrame returns the next Opus frame. The decoder reads frame lengths as
// signed 16 bit integers, so lengths with the high bit set are rejected here.
func (r *dcaResource) ReadFrame() ([]byte, error) {
	size, err := r.br.Peek(2)
	if err != nil {
		if len(size) > 0 && errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if int16(binary.LittleEndian.Uint16(size)) < 0 {
		return nil, errDCAFrameSize
	}
	return r.decoder.OpusFrame()
}

func (r *dcaResource) Kind() Kind {
	return KindDCA
}

func (r *dcaResource) Close() error {
	return r.closer.Close()
}

var _ Resource = (*dcaResource)(nil)
