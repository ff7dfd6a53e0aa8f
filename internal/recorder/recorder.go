// Package recorder implements the audio capture session as an explicit
// finite-state machine, independent of any capture hardware or UI. The
// device is injected, so tests (and non-interactive frontends) supply
// their own chunk source.
package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the capture session state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrDeviceUnavailable is returned by Start when the capture device cannot
// be acquired (denied, missing, or already held).
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// ErrSessionActive is returned by Start while a session is recording or paused.
var ErrSessionActive = errors.New("capture session already active")

// ErrInvalidTransition is returned when an operation is not valid in the
// current state (e.g. Pause while idle).
var ErrInvalidTransition = errors.New("invalid state transition")

// ContentType is the container format of an assembled clip.
const ContentType = "audio/webm"

// Device grants exclusive access to capture hardware. Acquire hands chunks
// to onChunk as they arrive and returns a handle used to release the
// hardware. Implementations must allow only one outstanding acquisition.
type Device interface {
	Acquire(onChunk func([]byte)) (Capture, error)
}

// Capture is an acquired device handle.
type Capture interface {
	Release() error
}

// Clip is the assembled result of a stopped session: one opaque audio blob.
type Clip struct {
	Data        []byte
	ContentType string
	Duration    time.Duration
}

// Clock reports the current time. Injected so duration accounting is
// testable without real sleeps.
type Clock func() time.Time

// Recorder runs at most one capture session at a time.
//
// States: idle → recording → {paused ↔ recording} → stopped. Reset returns
// any state to idle. A new Start after Stop begins a fresh session.
type Recorder struct {
	mu     sync.Mutex
	device Device
	clock  Clock

	state    State
	capture  Capture
	chunks   [][]byte
	elapsed  time.Duration // completed recording spans
	segStart time.Time     // start of the current recording span
	clip     *Clip
}

// New creates a Recorder over the given device. A nil clock uses time.Now.
func New(device Device, clock Clock) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{device: device, clock: clock, state: StateIdle}
}

// State returns the current session state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the capture device and begins a new session. It fails with
// ErrSessionActive while a session is recording or paused, and with
// ErrDeviceUnavailable when acquisition is denied. Starting from stopped
// discards the previous session's clip.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateIdle, StateStopped:
	default:
		return ErrSessionActive
	}

	capture, err := r.device.Acquire(r.appendChunk)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r.capture = capture
	r.chunks = nil
	r.clip = nil
	r.elapsed = 0
	r.segStart = r.clock()
	r.state = StateRecording
	return nil
}

// appendChunk accumulates a chunk while the session is recording. Chunks
// arriving while paused are dropped; accumulation is suspended.
func (r *Recorder) appendChunk(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording || len(chunk) == 0 {
		return
	}
	r.chunks = append(r.chunks, chunk)
}

// Pause suspends chunk accumulation and duration advancement. Valid only
// while recording.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, r.state)
	}
	r.elapsed += r.clock().Sub(r.segStart)
	r.state = StatePaused
	return nil
}

// Resume continues a paused session. The paused interval is excluded from
// the reported duration.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, r.state)
	}
	r.segStart = r.clock()
	r.state = StateRecording
	return nil
}

// Stop ends the session from recording or paused, assembles the accumulated
// chunks into one clip, and releases the capture device on every path.
func (r *Recorder) Stop() (Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateRecording:
		r.elapsed += r.clock().Sub(r.segStart)
	case StatePaused:
	default:
		return Clip{}, fmt.Errorf("%w: stop from %s", ErrInvalidTransition, r.state)
	}

	r.releaseLocked()

	var buf bytes.Buffer
	for _, chunk := range r.chunks {
		buf.Write(chunk)
	}
	clip := Clip{Data: buf.Bytes(), ContentType: ContentType, Duration: r.elapsed}
	r.clip = &clip
	r.state = StateStopped
	return clip, nil
}

// Reset abandons the session from any state: the accumulated blob and
// duration are cleared and the device, if held, is released.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.releaseLocked()
	r.chunks = nil
	r.clip = nil
	r.elapsed = 0
	r.state = StateIdle
}

// Duration reports the recorded time so far, excluding paused intervals.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return r.elapsed + r.clock().Sub(r.segStart)
	}
	return r.elapsed
}

// Clip returns the assembled clip of a stopped session, or false before Stop.
func (r *Recorder) Clip() (Clip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clip == nil {
		return Clip{}, false
	}
	return *r.clip, true
}

func (r *Recorder) releaseLocked() {
	if r.capture == nil {
		return
	}
	// Release failures leave nothing for the session to do; the handle is
	// dropped either way so a new Start can re-acquire.
	_ = r.capture.Release()
	r.capture = nil
}
