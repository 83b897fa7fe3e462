package ttsdetect

import "testing"

func TestDetect_FindsFirstCandidateOnPath(t *testing.T) {
	// "sh" is present on every POSIX CI runner; use it as the first
	// candidate to exercise the found path without depending on any of
	// the real TTS binaries being installed.
	got, err := Detect([]string{"sh", "does-not-exist-binary"})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got == "" {
		t.Error("Detect() returned empty path")
	}
}

func TestDetect_SkipsMissingCandidates(t *testing.T) {
	got, err := Detect([]string{"does-not-exist-binary-1", "sh"})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got == "" {
		t.Error("Detect() returned empty path")
	}
}

func TestDetect_NoneFoundReturnsErrNoneFound(t *testing.T) {
	_, err := Detect([]string{"does-not-exist-binary-1", "does-not-exist-binary-2"})
	if err != ErrNoneFound {
		t.Errorf("Detect() error = %v, want ErrNoneFound", err)
	}
}
