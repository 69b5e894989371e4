// Package camera manages the lifetime of one live capture stream. The
// Manager is the only way capture hardware is engaged; every stream it
// opens must be closed exactly once before another can be opened.
package camera

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrDeviceUnavailable is returned by Open when the host has no
	// capture-capable device.
	ErrDeviceUnavailable = errors.New("camera: no capture device available")
	// ErrPermissionDenied is returned by Open when the OS or user denies
	// access to the capture device.
	ErrPermissionDenied = errors.New("camera: capture permission denied")
	// ErrStreamHeld is returned by Open while a previously opened stream
	// has not been closed.
	ErrStreamHeld = errors.New("camera: a stream is already open")
)

// Facing selects which device orientation to open.
type Facing string

const (
	// FacingEnvironment is the rear / world-facing device.
	FacingEnvironment Facing = "environment"
	// FacingUser is the front / user-facing device.
	FacingUser Facing = "user"
)

// Device produces raw frames from capture hardware.
type Device interface {
	// Frame returns the current frame. Implementations return
	// ErrDeviceUnavailable or ErrPermissionDenied (possibly wrapped)
	// when the hardware cannot be read.
	Frame() (image.Image, error)
}

// DeviceOpener probes and opens a Device for the requested facing.
type DeviceOpener interface {
	OpenDevice(facing Facing) (Device, error)
}

// Stream is a live frame source handle. A Stream is owned by the caller
// that opened it and is invalid after Close.
type Stream struct {
	// Episode identifies this open-to-close lifetime. Results produced
	// against an older episode must not be applied to a newer one.
	Episode string

	device Device
	closed bool
}

// Frame returns the stream's current frame, or an error once closed.
func (s *Stream) Frame() (image.Image, error) {
	if s == nil || s.closed {
		return nil, errors.New("camera: stream is closed")
	}
	return s.device.Frame()
}

// Manager acquires and releases capture streams, enforcing the
// one-stream-at-a-time invariant.
type Manager struct {
	opener DeviceOpener

	mu   sync.Mutex
	held *Stream
}

// NewManager returns a Manager that opens devices through opener.
func NewManager(opener DeviceOpener) *Manager {
	return &Manager{opener: opener}
}

// Open engages the capture device and returns a live stream. It fails with
// ErrStreamHeld when the previous stream has not been closed, and with
// ErrDeviceUnavailable or ErrPermissionDenied when the device cannot be
// acquired.
func (m *Manager) Open(facing Facing) (*Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held != nil {
		return nil, ErrStreamHeld
	}

	dev, err := m.opener.OpenDevice(facing)
	if err != nil {
		return nil, fmt.Errorf("open capture device: %w", err)
	}

	s := &Stream{Episode: uuid.NewString(), device: dev}
	m.held = s
	return s, nil
}

// Close releases the stream. It is idempotent and safe to call with a nil
// or already-closed stream.
func (m *Manager) Close(s *Stream) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s.closed = true
	if m.held == s {
		m.held = nil
	}
}
