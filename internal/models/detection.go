package models

import (
	"fmt"
	"image"
)

// Detection is one object found in an image, after suppression.
// Coordinates are absolute pixels of the original (unresized) image.
type Detection struct {
	ClassID     int     `json:"class_id"`
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
	Left        int     `json:"left"`
	Top         int     `json:"top"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

func (d Detection) Rect() image.Rectangle {
	return image.Rect(d.Left, d.Top, d.Left+d.Width, d.Top+d.Height)
}

// String renders "label probability [left top width height]".
func (d Detection) String() string {
	return fmt.Sprintf("%s  %g [%d %d %d %d]", d.Label, d.Probability, d.Left, d.Top, d.Width, d.Height)
}
