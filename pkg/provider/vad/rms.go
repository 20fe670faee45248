package vad

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cutforge/cutforge/pkg/audio"
)

// RMSConfig holds the parameters for the energy-based detector.
type RMSConfig struct {
	// FrameSizeMs is the analysis frame duration in milliseconds.
	FrameSizeMs int `yaml:"frame_size_ms"`

	// SpeechThreshold is the RMS level (samples normalized to [-1, 1]) at or
	// above which a frame counts as speech.
	SpeechThreshold float64 `yaml:"speech_threshold"`

	// SilenceThreshold is the RMS level below which a frame counts as
	// silence while inside a speech run. Must be ≤ SpeechThreshold; the gap
	// between the two is the hysteresis band.
	SilenceThreshold float64 `yaml:"silence_threshold"`

	// SpeechFrames is the number of consecutive speech frames required to
	// open a segment.
	SpeechFrames int `yaml:"speech_frames"`

	// SilenceFrames is the number of consecutive silence frames required to
	// close a segment.
	SilenceFrames int `yaml:"silence_frames"`
}

// DefaultRMSConfig returns parameters tuned for 16 kHz speech recordings:
// 20 ms frames, ~60 ms to open a segment, ~600 ms of silence to close one.
func DefaultRMSConfig() RMSConfig {
	return RMSConfig{
		FrameSizeMs:      20,
		SpeechThreshold:  0.015,
		SilenceThreshold: 0.008,
		SpeechFrames:     3,
		SilenceFrames:    30,
	}
}

// Validate checks the configuration for internal consistency.
func (c RMSConfig) Validate() error {
	var errs []error
	if c.FrameSizeMs <= 0 {
		errs = append(errs, fmt.Errorf("frame size must be positive, got %d ms", c.FrameSizeMs))
	}
	if c.SpeechThreshold <= 0 {
		errs = append(errs, fmt.Errorf("speech threshold must be positive, got %g", c.SpeechThreshold))
	}
	if c.SilenceThreshold <= 0 {
		errs = append(errs, fmt.Errorf("silence threshold must be positive, got %g", c.SilenceThreshold))
	}
	if c.SilenceThreshold > c.SpeechThreshold {
		errs = append(errs, fmt.Errorf("silence threshold %g exceeds speech threshold %g",
			c.SilenceThreshold, c.SpeechThreshold))
	}
	if c.SpeechFrames <= 0 {
		errs = append(errs, fmt.Errorf("speech frames must be positive, got %d", c.SpeechFrames))
	}
	if c.SilenceFrames <= 0 {
		errs = append(errs, fmt.Errorf("silence frames must be positive, got %d", c.SilenceFrames))
	}
	return errors.Join(errs...)
}

// Compile-time assertion that RMSEngine implements Engine.
var _ Engine = (*RMSEngine)(nil)

// RMSEngine is a pure-Go voice activity detector based on frame RMS energy
// with hysteresis: separate open/close thresholds plus consecutive-frame
// counts keep the detector from flickering between states on breathy or
// trailing speech.
type RMSEngine struct {
	cfg RMSConfig
}

// NewRMSEngine creates an RMSEngine, validating cfg first.
func NewRMSEngine(cfg RMSConfig) (*RMSEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("vad: invalid config: %w", err)
	}
	return &RMSEngine{cfg: cfg}, nil
}

// DetectSpeech implements Engine. Detection state is local to the call, so
// one engine may serve concurrent callers.
func (e *RMSEngine) DetectSpeech(ctx context.Context, buf audio.Buffer) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frameLen := buf.SampleRate * e.cfg.FrameSizeMs / 1000
	if frameLen <= 0 {
		return nil, fmt.Errorf("vad: frame of %d ms is empty at %d Hz", e.cfg.FrameSizeMs, buf.SampleRate)
	}

	var (
		segments     []Segment
		inSpeech     bool
		speechCount  int
		silenceCount int
		startFrame   int
	)

	nFrames := len(buf.Samples) / frameLen
	for f := 0; f < nFrames; f++ {
		level := frameRMS(buf.Samples[f*frameLen : (f+1)*frameLen])

		if inSpeech {
			if level < e.cfg.SilenceThreshold {
				silenceCount++
				if silenceCount >= e.cfg.SilenceFrames {
					endFrame := f - e.cfg.SilenceFrames + 1
					segments = append(segments, Segment{
						Start: frameTime(startFrame, frameLen, buf.SampleRate),
						End:   frameTime(endFrame, frameLen, buf.SampleRate),
					})
					inSpeech = false
					silenceCount = 0
				}
			} else {
				silenceCount = 0
			}
		} else {
			if level >= e.cfg.SpeechThreshold {
				speechCount++
				if speechCount >= e.cfg.SpeechFrames {
					startFrame = f - e.cfg.SpeechFrames + 1
					inSpeech = true
					speechCount = 0
					silenceCount = 0
				}
			} else {
				speechCount = 0
			}
		}
	}

	// A run still open at the end of the recording closes at the buffer edge.
	if inSpeech {
		segments = append(segments, Segment{
			Start: frameTime(startFrame, frameLen, buf.SampleRate),
			End:   buf.Duration(),
		})
	}

	return segments, nil
}

// frameRMS computes the root-mean-square level of one frame.
func frameRMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// frameTime converts a frame index to seconds.
func frameTime(frame, frameLen, sampleRate int) float64 {
	return float64(frame*frameLen) / float64(sampleRate)
}
