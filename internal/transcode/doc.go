// Package transcode runs the external FFmpeg process that turns an internet
// audio stream (HLS, Icecast/MP3, AAC, OGG) into Ogg/Opus on standard output.
//
// A Pipe owns exactly one process. Closing the Pipe always terminates and
// reaps the process, whichever path released it.
package transcode
