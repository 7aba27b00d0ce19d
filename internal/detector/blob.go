package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Blob scales pixels to [0,1], resizes to size and swaps BGR to RGB, the
// layout darknet YOLO models are trained on.
func Blob(img gocv.Mat, size image.Point) gocv.Mat {
	return gocv.BlobFromImage(img, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
}
