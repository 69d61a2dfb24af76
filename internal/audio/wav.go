package audio

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
)

// PCM is a block of signed 16-bit little-endian samples ready to be handed to
// the transcoder as a raw s16le input.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// HasWAVHeader reports whether data starts with a RIFF/WAVE signature
func HasWAVHeader(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// ExtractPCM returns the raw PCM carried by a decoded TTS payload.
//
// TTS engines return either bare s16le samples or a complete WAV file.
// A WAV payload is unwrapped (its own sample rate and channel count win);
// anything else is taken as bare mono samples at defaultRate.
func ExtractPCM(payload []byte, defaultRate int) (PCM, error) {
	if len(payload) == 0 {
		return PCM{}, fmt.Errorf("empty audio payload")
	}

	if !HasWAVHeader(payload) {
		return PCM{Data: payload, SampleRate: defaultRate, Channels: 1}, nil
	}

	r := bytes.NewReader(payload)
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return PCM{}, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if dec.WavAudioFormat != 1 {
		return PCM{}, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", dec.WavAudioFormat)
	}

	if dec.BitDepth != 16 {
		return PCM{}, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", dec.BitDepth)
	}

	if dec.SampleRate == 0 || dec.NumChans == 0 {
		return PCM{}, fmt.Errorf("invalid WAV payload: sample rate %d, channels %d", dec.SampleRate, dec.NumChans)
	}

	if err := dec.FwdToPCM(); err != nil || dec.PCMChunk == nil {
		return PCM{}, fmt.Errorf("invalid WAV payload: missing data chunk")
	}

	// The decoder leaves the reader at the first sample.
	body := len(payload) - r.Len()
	end := body + dec.PCMSize
	// Streaming encoders write 0 or 0xFFFFFFFF when the length is unknown.
	if dec.PCMSize <= 0 || end > len(payload) || end < body {
		end = len(payload)
	}
	if end-body == 0 {
		return PCM{}, fmt.Errorf("no audio data found")
	}

	return PCM{
		Data:       payload[body:end],
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}
