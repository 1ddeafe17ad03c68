package opus

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Kind is the container/codec framing found on a stream.
type Kind int

const (
	KindUnknown Kind = iota
	KindOggOpus
	KindDCA
)

func (k Kind) String() string {
	switch k {
	case KindOggOpus:
		return "ogg/opus"
	case KindDCA:
		return "dca"
	default:
		return "unknown"
	}
}

// ProbeError means a stream could not be classified into a playable framing.
type ProbeError struct {
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to read the stream: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unable to read the stream: %s", e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

var _ error = (*ProbeError)(nil)

const (
	probeBufferSize = 4096
	oggHeaderSize   = 27
	oggBOSFlag      = 0x02
)

var (
	oggCapturePattern = []byte("OggS")
	dcaMagic          = []byte("DCA1")
	ebmlMagic         = []byte{0x1A, 0x45, 0xDF, 0xA3}

	opusHeadMagic  = []byte("OpusHead")
	vorbisMagic    = []byte("\x01vorbis")
	speexMagic     = []byte("Speex   ")
	flacMagic      = []byte("\x7fFLAC")
	identProbeSize = len(opusHeadMagic)
)

// Resource is a playable stream of Opus frames. Closing it releases the
// underlying byte stream, which for a transcoder pipe terminates the process.
type Resource interface {
	FrameSource
	Kind() Kind
	Close() error
}

// Probe reads enough leading bytes of rc to determine its framing and wraps it
// into a Resource. If probing fails, rc is closed before the error is returned.
func Probe(rc io.ReadCloser) (Resource, error) {
	br := bufio.NewReaderSize(rc, probeBufferSize)

	kind, err := classify(br)
	if err != nil {
		rc.Close()
		return nil, err
	}

	switch kind {
	case KindOggOpus:
		return newOggResource(br, rc), nil
	case KindDCA:
		res, err := newDCAResource(br, rc)
		if err != nil {
			rc.Close()
			return nil, err
		}
		return res, nil
	}

	rc.Close()
	return nil, &ProbeError{Reason: fmt.Sprintf("no playable framing for %s", kind)}
}

// classify peeks at br without consuming anything.
func classify(br *bufio.Reader) (Kind, error) {
	magic, err := br.Peek(len(oggCapturePattern))
	if err != nil {
		return KindUnknown, &ProbeError{Reason: "stream ended before any audio was received", Err: err}
	}

	switch {
	case bytes.Equal(magic, oggCapturePattern):
		return classifyOgg(br)
	case bytes.Equal(magic, dcaMagic):
		return KindDCA, nil
	case bytes.Equal(magic, ebmlMagic):
		return KindUnknown, &ProbeError{Reason: "webm framing is not supported"}
	}
	return KindUnknown, &ProbeError{Reason: fmt.Sprintf("unrecognized framing (leading bytes % x)", magic)}
}

func classifyOgg(br *bufio.Reader) (Kind, error) {
	header, err := br.Peek(oggHeaderSize)
	if err != nil {
		return KindUnknown, &ProbeError{Reason: "stream ended inside the first ogg page", Err: err}
	}
	if header[5]&oggBOSFlag == 0 {
		return KindUnknown, &ProbeError{Reason: "first ogg page does not begin a stream"}
	}

	segments := int(header[26])
	payloadStart := oggHeaderSize + segments
	page, err := br.Peek(payloadStart + identProbeSize)
	if err != nil {
		return KindUnknown, &ProbeError{Reason: "stream ended inside the first ogg page", Err: err}
	}
	ident := page[payloadStart:]

	switch {
	case bytes.HasPrefix(ident, opusHeadMagic):
		return KindOggOpus, nil
	case bytes.HasPrefix(ident, vorbisMagic):
		return KindUnknown, &ProbeError{Reason: "ogg/vorbis is not supported"}
	case bytes.HasPrefix(ident, speexMagic):
		return KindUnknown, &ProbeError{Reason: "ogg/speex is not supported"}
	case bytes.HasPrefix(ident, flacMagic):
		return KindUnknown, &ProbeError{Reason: "ogg/flac is not supported"}
	}
	return KindUnknown, &ProbeError{Reason: "ogg stream carries an unknown codec"}
}
