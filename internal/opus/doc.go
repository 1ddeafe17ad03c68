// Package opus classifies transcoded byte streams and turns them into
// sources of raw Opus frames for Discord voice playback.
//
// Probe inspects the leading bytes of a stream instead of trusting the
// transcoder's declared output format. Two framings are playable:
//
//   - Ogg/Opus: Ogg pages whose first packet is an OpusHead header.
//   - DCA: "DCA1" magic, an int32 LE metadata length, JSON metadata, then
//     length-prefixed frames, decoded with github.com/jonas747/dca.
//
// StreamToVoice pumps frames from a source into a voice sink.
package opus
