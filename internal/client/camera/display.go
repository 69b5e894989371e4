package camera

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// DisplayOpener opens the primary display as the capture device. It is the
// portable frame source this client can reach without platform-specific
// camera bindings; pointing a card at the screen region works the same as
// a rear camera from the pipeline's point of view.
type DisplayOpener struct{}

// OpenDevice probes the display and returns a device bound to it. Both
// facings map to the primary display.
func (DisplayOpener) OpenDevice(facing Facing) (Device, error) {
	if facing != FacingEnvironment && facing != FacingUser {
		return nil, fmt.Errorf("unknown facing %q: %w", facing, ErrDeviceUnavailable)
	}
	if screenshot.NumActiveDisplays() == 0 {
		return nil, ErrDeviceUnavailable
	}
	dev := &displayDevice{bounds: screenshot.GetDisplayBounds(0)}
	// Probe one frame so permission problems surface at open time,
	// not at first capture.
	if _, err := dev.Frame(); err != nil {
		return nil, err
	}
	return dev, nil
}

type displayDevice struct {
	bounds image.Rectangle
}

// Frame grabs the current contents of the display region.
func (d *displayDevice) Frame() (image.Image, error) {
	img, err := screenshot.CaptureRect(d.bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return img, nil
}
