// Package echo runs the capture, compress and play loop.
//
// Each cycle zero-fills the shared buffer, captures active chunks until a
// silent one arrives, compresses the captured run in place and plays it back
// faster and higher pitched. A failed capture ends the loop; a failed
// playback is retried once and otherwise only logged.
package echo
