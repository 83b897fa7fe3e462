// Package ttsdetect autodetects the text-to-speech binary to invoke when
// the configuration doesn't name one, per spec §6's fixed search order.
package ttsdetect

import (
	"errors"
	"os/exec"
)

// DefaultCandidates is the autodetect order: say (macOS), then the two
// common espeak variants.
var DefaultCandidates = []string{"say", "espeak-ng", "espeak"}

// ErrNoneFound is returned when no candidate binary is on PATH and none
// was configured.
var ErrNoneFound = errors.New("ttsdetect: no TTS binary found on PATH; configure speaker.command")

// Detect returns the first candidate found on PATH, in order.
func Detect(candidates []string) (string, error) {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", ErrNoneFound
}
