package opus

import (
	"context"
	"errors"
	"io"
)

// FrameSource yields raw Opus frames until io.EOF.
type FrameSource interface {
	ReadFrame() ([]byte, error)
}

// Sink accepts Opus frames for transmission.
type Sink interface {
	SendFrame(ctx context.Context, frame []byte) error
}

// StreamToVoice reads Opus frames from source and sends them to sink.
// It blocks until all frames are sent, ctx is done, or an error occurs.
// Returns nil on clean EOF.
func StreamToVoice(ctx context.Context, source FrameSource, sink Sink) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := source.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		if err := sink.SendFrame(ctx, frame); err != nil {
			return err
		}
	}
}
