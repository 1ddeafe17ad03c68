package opus

import (
	"errors"
	"io"

	"github.com/jonas747/ogg"
)

// Ogg/Opus streams start with an identification and a comment header packet.
const oggOpusHeaderPackets = 2

type oggResource struct {
	packets *ogg.PacketDecoder
	closer  io.Closer
	skip    int
}

func newOggResource(r io.Reader, closer io.Closer) *oggResource {
	return &oggResource{
		packets: ogg.NewPacketDecoder(ogg.NewDecoder(r)),
		closer:  closer,
		skip:    oggOpusHeaderPackets,
	}
}

func (r *oggResource) Kind() Kind {
	return KindOggOpus
}

// ReadFrame returns the next Opus packet, skipping the stream headers.
func (r *oggResource) ReadFrame() ([]byte, error) {
	for {
		packet, _, err := r.packets.Decode()
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		if r.skip > 0 {
			r.skip--
			continue
		}
		if len(packet) == 0 {
			continue
		}

		// The decoder may reuse its buffers; frames outlive this call.
		frame := make([]byte, len(packet))
		copy(frame, packet)
		return frame, nil
	}
}

func (r *oggResource) Close() error {
	return r.closer.Close()
}

var _ Resource = (*oggResource)(nil)
