// Package device opens the capture and playback devices named on the command
// line.
//
// Identifiers:
//
//	default       the PortAudio default input or output device
//	wav:<path>    a mono 16-bit WAV file (read for capture, written on Close for playback)
//	<n>           index into the PortAudio device list
//	<name>        exact PortAudio device name
//
// PortAudio streams are blocking and mono. Reset stops the stream; the next
// Read or Write restarts it.
package device
