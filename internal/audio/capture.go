package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/voxtype/voxtype/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)

// Capture owns the microphone input stream. Hardware initialization can
// take a noticeable amount of time on some systems, so readiness is
// signalled on a channel rather than assumed after construction.
type Capture struct {
	logger          *logger.Logger
	sampleRate      float64
	framesPerBuffer int
	channels        int
	deviceName      string

	mu      sync.RWMutex
	stream  *portaudio.Stream
	running bool
	muted   bool
	done    chan struct{} // closed when captureLoop exits

	outputChan chan []float32
	ready      chan struct{}
	readyOnce  sync.Once
}

// CaptureConfig contains configuration for microphone capture
type CaptureConfig struct {
	SampleRate      int
	FramesPerBuffer int
	Channels        int
	DeviceName      string // empty = system default input
}

// NewCapture creates a new capture instance. PortAudio is initialized
// here and terminated in Close.
func NewCapture(cfg CaptureConfig, log *logger.Logger) (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &Capture{
		logger:          log.Named("audio-capture"),
		sampleRate:      float64(cfg.SampleRate),
		framesPerBuffer: cfg.FramesPerBuffer,
		channels:        cfg.Channels,
		deviceName:      cfg.DeviceName,
		muted:           true,
		outputChan:      make(chan []float32, 100),
		ready:           make(chan struct{}),
	}, nil
}

// Ready is closed once the hardware stream has been opened and started.
func (c *Capture) Ready() <-chan struct{} {
	return c.ready
}

// Output returns the channel raw sample buffers are delivered on.
func (c *Capture) Output() <-chan []float32 {
	return c.outputChan
}

// Start opens the input stream and begins the capture loop. The ready
// channel is closed once the stream is live.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("capture already running")
	}

	buffer := make([]float32, c.framesPerBuffer)

	stream, err := c.openStream(buffer)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	c.stream = stream
	c.running = true
	c.done = make(chan struct{})
	c.readyOnce.Do(func() { close(c.ready) })

	c.logger.Info("Microphone stream started",
		Int("sample_rate", int(c.sampleRate)),
		Int("frames_per_buffer", c.framesPerBuffer))

	go c.captureLoop(ctx, buffer, c.done)

	return nil
}

func (c *Capture) openStream(buffer []float32) (*portaudio.Stream, error) {
	if c.deviceName != "" && c.deviceName != "default" {
		device, err := findInputDevice(c.deviceName)
		if err == nil {
			params := portaudio.StreamParameters{
				Input: portaudio.StreamDeviceParameters{
					Device:   device,
					Channels: c.channels,
					Latency:  device.DefaultLowInputLatency,
				},
				SampleRate:      c.sampleRate,
				FramesPerBuffer: c.framesPerBuffer,
			}
			return portaudio.OpenStream(params, buffer)
		}
		c.logger.Warn("Input device not found, falling back to default",
			String("device", c.deviceName), Error(err))
	}

	return portaudio.OpenDefaultStream(c.channels, 0, c.sampleRate, c.framesPerBuffer, buffer)
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("input device not found: %s", name)
}

func (c *Capture) captureLoop(ctx context.Context, buffer []float32, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		stream := c.stream
		running := c.running
		muted := c.muted
		c.mu.RUnlock()

		if !running || stream == nil {
			return
		}

		if err := stream.Read(); err != nil {
			c.mu.RLock()
			stillRunning := c.running
			c.mu.RUnlock()
			if !stillRunning {
				return
			}
			// Overflows are routine when the consumer stalls briefly.
			continue
		}

		// The stream keeps reading while muted so the hardware buffer
		// never backs up, but samples are discarded.
		if muted {
			continue
		}

		samples := make([]float32, len(buffer))
		copy(samples, buffer)

		select {
		case c.outputChan <- samples:
		default:
			// Consumer is behind; drop this buffer rather than block
			// the real-time capture thread.
		}
	}
}

// Resume unmutes sample forwarding. Capture starts muted.
func (c *Capture) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return fmt.Errorf("capture not running")
	}
	c.muted = false
	return nil
}

// Pause mutes sample forwarding without stopping the hardware stream.
func (c *Capture) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return fmt.Errorf("capture not running")
	}
	c.muted = true
	return nil
}

// Stop halts the capture loop and closes the hardware stream. It does
// not return until the loop goroutine has exited, so no further sends
// on the output channel can occur.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	stream := c.stream
	c.stream = nil
	done := c.done
	c.done = nil
	c.mu.Unlock()

	if stream != nil {
		// Stopping the stream unblocks a pending Read in the loop.
		if err := stream.Stop(); err != nil {
			c.logger.Warn("Failed to stop audio stream", Error(err))
		}
	}
	if done != nil {
		<-done
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			return fmt.Errorf("failed to close audio stream: %w", err)
		}
	}

	return nil
}

// Close stops capture and releases PortAudio.
func (c *Capture) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}
	// Stop waited for the capture loop, so the channel has no senders.
	close(c.outputChan)
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// ListInputDevices enumerates available microphone devices.
func ListInputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	defaultInput, _ := portaudio.DefaultInputDevice()
	var defaultName string
	if defaultInput != nil {
		defaultName = defaultInput.Name
	}

	var inputs []DeviceInfo
	for i, dev := range devices {
		if dev.MaxInputChannels > 0 {
			inputs = append(inputs, DeviceInfo{
				Index:             i,
				Name:              dev.Name,
				MaxInputChannels:  dev.MaxInputChannels,
				DefaultSampleRate: dev.DefaultSampleRate,
				IsDefault:         dev.Name == defaultName,
			})
		}
	}
	return inputs, nil
}

// DeviceInfo describes an available input device
type DeviceInfo struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}
