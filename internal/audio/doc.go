// Package audio holds the capture/compress core of the effect box: the shared
// fixed-capacity sample buffer, chunked capture until silence, in-place time
// compression, the interfaces of the capture and playback devices, and the
// PCM16 WAV codec used by file-backed devices.
package audio
