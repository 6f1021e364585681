//go:build gocv
// +build gocv

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

type gocvDevice struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// OpenDevice returns an Opener for the local video device at index,
// requesting the given resolution.
func OpenDevice(index, width, height int) Opener {
	return func(ctx context.Context) (Device, error) {
		capture, err := gocv.OpenVideoCapture(index)
		if err != nil {
			return nil, fmt.Errorf("open video device %d: %w", index, err)
		}
		if !capture.IsOpened() {
			capture.Close()
			return nil, fmt.Errorf("video device %d is not available", index)
		}
		if width > 0 && height > 0 {
			capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
			capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
		}
		return &gocvDevice{capture: capture, frame: gocv.NewMat()}, nil
	}
}

func (d *gocvDevice) Dimensions() (int, int) {
	return int(d.capture.Get(gocv.VideoCaptureFrameWidth)), int(d.capture.Get(gocv.VideoCaptureFrameHeight))
}

func (d *gocvDevice) Read() (image.Image, error) {
	if ok := d.capture.Read(&d.frame); !ok || d.frame.Empty() {
		return nil, errors.New("no frame available")
	}
	return d.frame.ToImage()
}

func (d *gocvDevice) Close() error {
	d.frame.Close()
	return d.capture.Close()
}
