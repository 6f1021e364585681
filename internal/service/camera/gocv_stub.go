//go:build !gocv
// +build !gocv

package camera

import (
	"context"
	"errors"
)

// OpenDevice returns an Opener that always fails: camera capture needs
// OpenCV, enabled with the gocv build tag.
func OpenDevice(index, width, height int) Opener {
	return func(ctx context.Context) (Device, error) {
		return nil, errors.New("camera support not built in (rebuild with -tags gocv)")
	}
}
