// Package audio plays a sound cue when an entry becomes active.
// It uses the beep library to play WAV, OGG, and MP3 files with volume
// control and one sound per priority band.
package audio
