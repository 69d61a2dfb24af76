package vad

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

// Config contains detector parameters
type Config struct {
	Threshold  float64       // normalized RMS (0..1) at which a window counts as voiced
	WindowSize int           // samples per window
	MinSpeech  time.Duration // voiced audio required before a clip counts as speech
}

// Processor is an energy-based voice activity detector for staged voice notes.
type Processor struct {
	config Config

	// Statistics
	totalClips    uint64
	silentClips   uint64
	totalWindows  uint64
	voiceWindows  uint64
	lastProcessed time.Time

	mu sync.RWMutex
}

// Result summarizes voice activity over one clip.
type Result struct {
	Windows       int           `json:"windows"`
	VoicedWindows int           `json:"voiced_windows"`
	VoicedTime    time.Duration `json:"voiced_time"`
	PeakLevel     float64       `json:"peak_level"`
	HasSpeech     bool          `json:"has_speech"`
}

// ProcessorStats represents detector statistics
type ProcessorStats struct {
	TotalClips      uint64    `json:"total_clips"`
	SilentClips     uint64    `json:"silent_clips"`
	TotalWindows    uint64    `json:"total_windows"`
	VoiceWindows    uint64    `json:"voice_windows"`
	VoicePercentage float64   `json:"voice_percentage"`
	LastProcessed   time.Time `json:"last_processed"`
	Threshold       float64   `json:"threshold"`
}

// NewProcessor creates a detector
func NewProcessor(config Config) (*Processor, error) {
	if config.Threshold <= 0 || config.Threshold >= 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1 (exclusive), got %f", config.Threshold)
	}

	if config.WindowSize <= 0 {
		config.WindowSize = 512
	}

	if config.MinSpeech < 0 {
		return nil, fmt.Errorf("min speech duration cannot be negative, got %v", config.MinSpeech)
	}

	return &Processor{config: config}, nil
}

// Level returns the RMS of samples normalized to full scale.
func Level(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var energy float64
	for _, s := range samples {
		energy += float64(s) * float64(s)
	}
	return math.Sqrt(energy/float64(len(samples))) / math.MaxInt16
}

// Analyze runs the detector over mono samples at sampleRate. A trailing
// partial window is evaluated as is.
func (p *Processor) Analyze(samples []int16, sampleRate int) Result {
	var r Result
	var voiced int

	for start := 0; start < len(samples); start += p.config.WindowSize {
		end := min(start+p.config.WindowSize, len(samples))
		level := Level(samples[start:end])

		r.Windows++
		r.PeakLevel = max(r.PeakLevel, level)
		if level >= p.config.Threshold {
			r.VoicedWindows++
			voiced += end - start
		}
	}

	if sampleRate > 0 {
		r.VoicedTime = time.Duration(voiced) * time.Second / time.Duration(sampleRate)
	}
	r.HasSpeech = r.VoicedWindows > 0 && r.VoicedTime >= p.config.MinSpeech

	p.mu.Lock()
	p.totalClips++
	if !r.HasSpeech {
		p.silentClips++
	}
	p.totalWindows += uint64(r.Windows)
	p.voiceWindows += uint64(r.VoicedWindows)
	p.lastProcessed = time.Now()
	p.mu.Unlock()

	return r
}

// AnalyzeWAV decodes a 16-bit PCM WAV file and analyzes its first channel.
func (p *Processor) AnalyzeWAV(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Result{}, fmt.Errorf("%s is not a valid WAV file", path)
	}
	if dec.BitDepth != 16 {
		return Result{}, fmt.Errorf("unsupported bit depth %d", dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := max(buf.Format.NumChannels, 1)
	samples := make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, int16(buf.Data[i]))
	}

	return p.Analyze(samples, buf.Format.SampleRate), nil
}

// HasSpeech reports whether the WAV file at path contains enough voiced audio.
func (p *Processor) HasSpeech(path string) (bool, error) {
	r, err := p.AnalyzeWAV(path)
	if err != nil {
		return false, err
	}
	return r.HasSpeech, nil
}

// GetStats returns current detector statistics
func (p *Processor) GetStats() ProcessorStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	voicePercentage := float64(0)
	if p.totalWindows > 0 {
		voicePercentage = float64(p.voiceWindows) / float64(p.totalWindows) * 100
	}

	return ProcessorStats{
		TotalClips:      p.totalClips,
		SilentClips:     p.silentClips,
		TotalWindows:    p.totalWindows,
		VoiceWindows:    p.voiceWindows,
		VoicePercentage: voicePercentage,
		LastProcessed:   p.lastProcessed,
		Threshold:       p.config.Threshold,
	}
}
