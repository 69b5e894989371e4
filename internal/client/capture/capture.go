// Package capture freezes one frame from a live stream and encodes it
// into a transmittable JPEG payload.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"

	"github.com/avitkov/cardscope/internal/client/camera"
)

// ErrEmptyFrame is returned when the stream has not yet produced a
// decodable frame.
var ErrEmptyFrame = errors.New("capture: stream has no decodable frame")

// quality matches the lossy encoding the backend's recognizer is tuned for.
const quality = 90

// Capture reads the stream's current frame and returns it as a JPEG
// payload. It never returns an empty payload: a frame that cannot be read
// or encoded yields an error. The stream itself is left open.
func Capture(s *camera.Stream) ([]byte, error) {
	frame, err := s.Frame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyFrame
	}
	return buf.Bytes(), nil
}
