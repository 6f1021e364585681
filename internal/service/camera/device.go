package camera

import (
	"context"
	"image"
)

// Device is an open video source owned by one camera session.
type Device interface {
	// Dimensions reports the native frame size, zero until the stream is ready.
	Dimensions() (width, height int)
	Read() (image.Image, error)
	Close() error
}

// Opener acquires the video device.
type Opener func(ctx context.Context) (Device, error)
