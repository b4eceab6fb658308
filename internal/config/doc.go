// Package config provides configuration loading and validation for the chatterdog effect box.
// It handles YAML-based configuration layered over built-in defaults that match the
// fixed 44.1 kHz mono 16-bit stream format the capture and playback core assumes.
package config
