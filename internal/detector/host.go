package detector

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/mpromonet/gin-yolo3/internal/postproc"
)

// Host loads a network from disk.
type Host interface {
	Load(weights string, network string) (Network, error)
}

// Network runs one forward pass and returns a tensor per output layer.
type Network interface {
	Forward(img gocv.Mat, size image.Point) ([]postproc.Output, error)
	Close() error
}

// OpenCVSuppressor delegates non-maximum suppression to cv::dnn::NMSBoxes.
type OpenCVSuppressor struct{}

func (OpenCVSuppressor) Suppress(boxes []image.Rectangle, scores []float32, scoreTh float32, overlapTh float32) []int {
	if len(boxes) == 0 {
		return nil
	}
	return gocv.NMSBoxes(boxes, scores, scoreTh, overlapTh)
}

// matToOutput copies a float Mat into a row-major Output. Blobs with more
// than two dimensions are flattened to (total/last, last).
func matToOutput(m gocv.Mat) (postproc.Output, error) {
	data, err := m.DataPtrFloat32()
	if err != nil {
		return postproc.Output{}, err
	}
	loc := make([]float32, len(data))
	copy(loc, data)

	cols := m.Cols()
	if sizes := m.Size(); len(sizes) > 2 {
		cols = sizes[len(sizes)-1]
	}
	if cols <= 0 {
		return postproc.NewOutput(0, 0, nil), nil
	}
	return postproc.NewOutput(len(loc)/cols, cols, loc), nil
}
