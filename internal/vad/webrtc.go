package vad

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// WebRTCDetector implements Detector with the WebRTC VAD.
type WebRTCDetector struct {
	vad        *webrtcvad.VAD
	sampleRate int
	mode       int
}

var validSampleRates = []int{8000, 16000, 32000, 48000}

// NewWebRTCDetector creates a detector. The sample rate must be one
// the WebRTC VAD supports.
func NewWebRTCDetector(cfg Config) (*WebRTCDetector, error) {
	ok := false
	for _, r := range validSampleRates {
		if cfg.SampleRate == r {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("invalid VAD sample rate %d, must be one of %v", cfg.SampleRate, validSampleRates)
	}

	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create WebRTC VAD: %w", err)
	}

	mode := cfg.Mode
	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}
	if err := v.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set VAD mode: %w", err)
	}

	return &WebRTCDetector{vad: v, sampleRate: cfg.SampleRate, mode: mode}, nil
}

// Process converts float32 samples to int16 and classifies them.
func (d *WebRTCDetector) Process(samples []float32) (bool, error) {
	int16Samples := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		int16Samples[i] = int16(s * 32767)
	}
	return d.ProcessInt16(int16Samples)
}

// ProcessInt16 classifies 16-bit samples. The WebRTC VAD only accepts
// 10/20/30ms frames, so input is processed in 10ms frames; any frame
// containing speech makes the whole buffer speech.
func (d *WebRTCDetector) ProcessInt16(samples []int16) (bool, error) {
	frameSize := d.sampleRate / 100

	if len(samples) < frameSize {
		padded := make([]int16, frameSize)
		copy(padded, samples)
		samples = padded
	}

	for i := 0; i+frameSize <= len(samples); i += frameSize {
		frame := samples[i : i+frameSize]
		buf := make([]byte, len(frame)*2)
		for j, s := range frame {
			buf[j*2] = byte(s)
			buf[j*2+1] = byte(s >> 8)
		}

		active, err := d.vad.Process(d.sampleRate, buf)
		if err != nil {
			return false, fmt.Errorf("VAD processing failed: %w", err)
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}

// Close releases resources.
func (d *WebRTCDetector) Close() error {
	return nil
}

// Mode returns the configured aggressiveness.
func (d *WebRTCDetector) Mode() int {
	return d.mode
}
