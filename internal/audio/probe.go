package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// WAVInfo describes a WAV file on disk
type WAVInfo struct {
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth"`
	Duration   time.Duration `json:"duration"`
}

// ProbeWAV opens a WAV file and reports its format. It fails when the file is
// not a decodable WAV or carries no samples.
func ProbeWAV(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return WAVInfo{}, fmt.Errorf("%s is not a valid WAV file", path)
	}

	duration, err := dec.Duration()
	if err != nil {
		return WAVInfo{}, fmt.Errorf("failed to read WAV duration: %w", err)
	}
	if duration <= 0 {
		return WAVInfo{}, fmt.Errorf("%s contains no audio", path)
	}

	return WAVInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   duration,
	}, nil
}

// ProbeMP3 returns the playback duration of an MP3 file
func ProbeMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("failed to decode MP3: %w", err)
	}

	// go-mp3 always decodes to 16-bit stereo: 4 bytes per frame.
	length := dec.Length()
	if length <= 0 || dec.SampleRate() <= 0 {
		return 0, fmt.Errorf("MP3 length unknown")
	}

	frames := length / 4
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate()), nil
}
