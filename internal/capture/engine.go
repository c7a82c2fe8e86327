package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
)

// State identifies the recording lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateRecorded
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateRecorded:
		return "recorded"
	default:
		return "idle"
	}
}

// Constraints selects which device tracks to acquire.
type Constraints struct {
	Video bool
	Audio bool
}

// Track is one acquired hardware track. Stopping a track releases its
// underlying device resource.
type Track interface {
	Kind() string
	Stop() error
}

// Stream is a live capture session handed out by a Device. Read returns
// successive encoded media chunks and io.EOF once the stream is closed.
type Stream interface {
	Tracks() []Track
	Read() ([]byte, error)
	Close() error
}

// Device mediates access to the camera and microphone.
type Device interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// Artifact is a finalized recording ready for upload.
type Artifact struct {
	Data     []byte
	MIME     string
	Filename string
}

// CaptureError reports a device acquisition or recording failure in a form
// suitable for surfacing to the user.
type CaptureError struct {
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *CaptureError) Unwrap() error { return e.Err }

var (
	// ErrAlreadyRecording rejects a second concurrent recording.
	ErrAlreadyRecording = errors.New("capture: already recording")
	// ErrNotIdle rejects starting over a finished take without a reset.
	ErrNotIdle = errors.New("capture: previous recording not discarded")
	// ErrNotRecorded rejects a reset when there is nothing to discard.
	ErrNotRecorded = errors.New("capture: no finished recording")
)

// Engine owns the camera/microphone stream lifecycle and turns one take into
// an uploadable artifact. At most one hardware stream is live at any time,
// and every exit path releases the acquired tracks.
type Engine struct {
	device Device
	mime   string

	mu       sync.Mutex
	state    State
	stream   Stream
	done     chan struct{}
	artifact *Artifact

	bufMu sync.Mutex
	buf   bytes.Buffer
}

// NewEngine builds an engine recording through the given device. mimeType
// defaults to the webm container when empty.
func NewEngine(device Device, mimeType string) *Engine {
	if mimeType == "" {
		mimeType = "video/webm"
	}
	return &Engine{device: device, mime: mimeType}
}

// State returns the current lifecycle position.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start acquires the device and begins buffering encoded chunks. Valid only
// from Idle; a denial or device error leaves the engine Idle.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateRecording:
		e.mu.Unlock()
		return ErrAlreadyRecording
	case StateRecorded:
		e.mu.Unlock()
		return ErrNotIdle
	}
	e.mu.Unlock()

	stream, err := e.device.Acquire(ctx, Constraints{Video: true, Audio: true})
	if err != nil {
		return &CaptureError{Reason: "failed to access camera and microphone", Err: err}
	}

	e.mu.Lock()
	if e.state != StateIdle {
		// Lost the race against a concurrent Start; give the device back.
		e.mu.Unlock()
		releaseStream(stream)
		return ErrAlreadyRecording
	}

	e.bufMu.Lock()
	e.buf.Reset()
	e.bufMu.Unlock()

	done := make(chan struct{})
	e.stream = stream
	e.done = done
	e.state = StateRecording
	e.mu.Unlock()

	go e.drain(stream, done)
	return nil
}

// drain buffers chunks until the stream ends.
func (e *Engine) drain(stream Stream, done chan struct{}) {
	defer close(done)
	for {
		chunk, err := stream.Read()
		if len(chunk) > 0 {
			e.bufMu.Lock()
			e.buf.Write(chunk)
			e.bufMu.Unlock()
		}
		if err != nil {
			// io.EOF on a clean close; anything else is a device failure
			// mid-take. Either way the buffer holds what was captured.
			return
		}
	}
}

// Stop finalizes the take and releases every acquired track. Calling Stop
// outside Recording is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != StateRecording {
		e.mu.Unlock()
		return nil
	}
	stream := e.stream
	done := e.done
	e.mu.Unlock()

	releaseStream(stream)
	<-done

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream != stream {
		// A concurrent Teardown already released this session; do not
		// resurrect a finished take from a discarded buffer.
		return nil
	}

	e.bufMu.Lock()
	data := make([]byte, e.buf.Len())
	copy(data, e.buf.Bytes())
	e.buf.Reset()
	e.bufMu.Unlock()

	e.stream = nil
	e.done = nil
	e.artifact = &Artifact{Data: data, MIME: e.mime, Filename: "pledge" + extensionFor(e.mime)}
	e.state = StateRecorded
	return nil
}

// Reset discards the finished artifact and returns to Idle. Valid only from
// Recorded.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRecorded {
		return ErrNotRecorded
	}
	e.artifact = nil
	e.state = StateIdle
	return nil
}

// Teardown releases everything from any state. Used when the user navigates
// away mid-session so no camera lock lingers.
func (e *Engine) Teardown() {
	e.mu.Lock()
	stream := e.stream
	done := e.done
	e.stream = nil
	e.done = nil
	e.artifact = nil
	e.state = StateIdle
	e.mu.Unlock()

	if stream != nil {
		releaseStream(stream)
	}
	if done != nil {
		<-done
	}

	e.bufMu.Lock()
	e.buf.Reset()
	e.bufMu.Unlock()
}

// Preview exposes the live stream while Recording, nil otherwise.
func (e *Engine) Preview() Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRecording {
		return nil
	}
	return e.stream
}

// Artifact returns the finalized recording while Recorded, nil otherwise.
func (e *Engine) Artifact() *Artifact {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRecorded {
		return nil
	}
	return e.artifact
}

// LiveTracks reports how many hardware tracks the engine currently holds.
func (e *Engine) LiveTracks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRecording || e.stream == nil {
		return 0
	}
	return len(e.stream.Tracks())
}

// releaseStream stops every track before closing the stream so the hardware
// indicator clears even when Close is a partial implementation.
func releaseStream(stream Stream) {
	for _, track := range stream.Tracks() {
		_ = track.Stop()
	}
	_ = stream.Close()
}

func extensionFor(mime string) string {
	switch mime {
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	default:
		return ".webm"
	}
}
