// Package vad provides the signal detector that decides whether a window of
// PCM samples is active. A window is active when more than a minimum number of
// its samples rise strictly above an amplitude threshold.
package vad
