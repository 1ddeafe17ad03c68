package opus_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/glizzus/radio-relay/internal/opus"
	"github.com/google/go-cmp/cmp"
)

type trackedReader struct {
	io.Reader
	closed int
}

func (r *trackedReader) Close() error {
	r.closed++
	return nil
}

func readAll(t *testing.T, res opus.Resource) [][]byte {
	t.Helper()
	var frames [][]byte
	for {
		frame, err := res.ReadFrame()
		if errors.Is(err, io.EOF) {
			return frames
		}
		if err != nil {
			t.Fatalf("unexpected error reading frame: %v", err)
		}
		frames = append(frames, frame)
	}
}

func TestProbePlayable(t *testing.T) {
	frames := [][]byte{
		bytes.Repeat([]byte{0xAA}, 10),
		bytes.Repeat([]byte{0xBB}, 120),
		bytes.Repeat([]byte{0xCC}, 300),
	}

	tests := []struct {
		name string
		data []byte
		kind opus.Kind
	}{
		{
			name: "ogg opus",
			data: oggOpusStream(frames...),
			kind: opus.KindOggOpus,
		},
		{
			name: "dca",
			data: dcaStream(`{"opus":{"sample_rate":48000,"channels":2}}`, frames...),
			kind: opus.KindDCA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &trackedReader{Reader: bytes.NewReader(tt.data)}

			res, err := opus.Probe(src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Kind() != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, res.Kind())
			}

			got := readAll(t, res)
			if diff := cmp.Diff(frames, got); diff != "" {
				t.Errorf("frames mismatch (-want +got):\n%s", diff)
			}

			if err := res.Close(); err != nil {
				t.Fatalf("unexpected error closing: %v", err)
			}
			if src.closed != 1 {
				t.Errorf("expected source to be closed once, got %d", src.closed)
			}
		})
	}
}

func TestProbeRejects(t *testing.T) {
	vorbisIdent := append([]byte("\x01vorbis"), make([]byte, 23)...)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty stream", data: nil},
		{name: "truncated magic", data: []byte("Og")},
		{name: "mp3 frames", data: []byte{0xFF, 0xFB, 0x90, 0x64, 0x00, 0x00}},
		{name: "id3 tagged mp3", data: []byte("ID3\x04\x00\x00\x00\x00\x00\x00")},
		{name: "webm", data: []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42}},
		{name: "ogg vorbis", data: oggPage(0x02, 0, vorbisIdent)},
		{name: "ogg without beginning of stream", data: oggPage(0, 0, []byte("OpusHead........"))},
		{name: "truncated ogg page", data: oggOpusStream()[:20]},
		{name: "dca with oversized metadata", data: []byte("DCA1\xff\xff\xff\x7f")},
		{name: "dca with truncated metadata", data: []byte("DCA1\x10\x00\x00\x00{}")},
		{name: "dca with malformed metadata", data: dcaStream("not json", []byte{1})},
		{name: "dca without metadata", data: dcaStream("", []byte{1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &trackedReader{Reader: bytes.NewReader(tt.data)}

			res, err := opus.Probe(src)
			if err == nil {
				t.Fatalf("expected an error, got resource of kind %s", res.Kind())
			}

			var probeErr *opus.ProbeError
			if !errors.As(err, &probeErr) {
				t.Fatalf("expected *opus.ProbeError, got %T: %v", err, err)
			}
			if src.closed != 1 {
				t.Errorf("expected source to be closed once, got %d", src.closed)
			}
		})
	}
}

func TestProbeDoesNotTrustDeclaredFormat(t *testing.T) {
	// A transcoder asked for ogg that emits dca is still playable.
	src := &trackedReader{Reader: bytes.NewReader(dcaStream("{}", []byte{1, 2, 3}))}

	res, err := opus.Probe(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer res.Close()

	if res.Kind() != opus.KindDCA {
		t.Errorf("expected kind dca, got %s", res.Kind())
	}
}

func TestDCAFrames(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    [][]byte
		wantErr error
	}{
		{
			name: "frames until end of stream",
			data: dcaStream("{}", []byte("one"), []byte("two")),
			want: [][]byte{[]byte("one"), []byte("two")},
		},
		{
			name:    "truncated frame",
			data:    append(dcaStream("{}", []byte("one")), 5, 0, 'a', 'b'),
			want:    [][]byte{[]byte("one")},
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "truncated length",
			data:    append(dcaStream("{}"), 5),
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "length beyond a signed 16 bit frame",
			data:    append(dcaStream("{}"), 0x00, 0x80, 'a'),
			wantErr: errors.New("dca frame length is out of range"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := opus.Probe(&trackedReader{Reader: bytes.NewReader(tt.data)})
			if err != nil {
				t.Fatalf("unexpected probe error: %v", err)
			}
			defer res.Close()

			var got [][]byte
			for {
				frame, err := res.ReadFrame()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					if tt.wantErr == nil {
						t.Fatalf("unexpected error: %v", err)
					}
					if err.Error() != tt.wantErr.Error() {
						t.Errorf("expected error %q, got %q", tt.wantErr, err)
					}
					break
				}
				got = append(got, frame)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("frames mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	tests := map[opus.Kind]string{
		opus.KindUnknown: "unknown",
		opus.KindOggOpus: "ogg/opus",
		opus.KindDCA:     "dca",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
