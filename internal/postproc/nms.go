package postproc

import (
	"image"
	"sort"
)

// GreedySuppressor is a pure Go non-maximum suppression with the same
// contract as OpenCV's NMSBoxes (eta 1, no top-k).
type GreedySuppressor struct{}

func (GreedySuppressor) Suppress(boxes []image.Rectangle, scores []float32, scoreTh float32, overlapTh float32) []int {
	order := []int{}
	for i := 0; i < len(boxes) && i < len(scores); i++ {
		if scores[i] > scoreTh {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	indices := []int{}
	for _, idx := range order {
		keep := true
		for _, k := range indices {
			if IoU(boxes[idx], boxes[k]) > overlapTh {
				keep = false
				break
			}
		}
		if keep {
			indices = append(indices, idx)
		}
	}
	return indices
}

// IoU is the intersection-over-union of two rectangles.
func IoU(a, b image.Rectangle) float32 {
	inter := area(a.Intersect(b))
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return float32(inter) / float32(union)
}

func area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}
