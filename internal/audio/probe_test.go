package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, path string, sampleRate, channels, frames int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProbeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.wav")
	writeTestWAV(t, path, 16000, 1, 16000)

	info, err := ProbeWAV(path)
	if err != nil {
		t.Fatalf("ProbeWAV failed: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitDepth != 16 {
		t.Errorf("unexpected format: %+v", info)
	}
	// The decoder derives duration from the RIFF size, which includes headers.
	if d := info.Duration - time.Second; d < -5*time.Millisecond || d > 5*time.Millisecond {
		t.Errorf("duration = %v, want 1s within 5ms", info.Duration)
	}
}

func TestProbeWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ProbeWAV(path); err == nil {
		t.Error("expected error for invalid WAV")
	}
}

func TestProbeMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := ProbeWAV(missing); err == nil {
		t.Error("ProbeWAV: expected error for missing file")
	}
	if _, err := ProbeMP3(missing); err == nil {
		t.Error("ProbeMP3: expected error for missing file")
	}
}
