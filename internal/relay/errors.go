package relay

import (
	"errors"
	"fmt"

	"github.com/glizzus/radio-relay/internal/opus"
	"github.com/glizzus/radio-relay/internal/voice"
)

var errTranscoderStart = errors.New("failed to start transcoder")

// UnknownStreamError is returned when a stream key is not in the catalog.
type UnknownStreamError struct {
	Key string
}

func (e *UnknownStreamError) Error() string {
	return fmt.Sprintf("radio %q is not configured", e.Key)
}

var _ error = (*UnknownStreamError)(nil)

// NotInVoiceError is returned when the requesting user is not in a voice channel.
type NotInVoiceError struct {
	GuildID string
	UserID  string
}

func (e *NotInVoiceError) Error() string {
	return "you must be in a voice channel"
}

var _ error = (*NotInVoiceError)(nil)

// StreamBlockedError is returned when an operator has blocked the stream.
type StreamBlockedError struct {
	Key   string
	Label string
}

func (e *StreamBlockedError) Error() string {
	return fmt.Sprintf("%s is currently off air", e.Label)
}

var _ error = (*StreamBlockedError)(nil)

// FailureReason names the step a Play error came from, for logs and metrics.
func FailureReason(err error) string {
	var (
		unknownErr *UnknownStreamError
		voiceErr   *NotInVoiceError
		blockedErr *StreamBlockedError
		connErr    *voice.ConnectionError
		probeErr   *opus.ProbeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &unknownErr):
		return "unknown_stream"
	case errors.As(err, &voiceErr):
		return "not_in_voice"
	case errors.As(err, &blockedErr):
		return "blocked"
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &probeErr):
		return "probe"
	case errors.Is(err, errTranscoderStart):
		return "transcode"
	default:
		return "error"
	}
}
