/* ---------------------------------------------------------------------------
** This software is in the public domain, furnished "as is", without technical
** support, and with no warranty, express or implied, as to its usefulness for
** any purpose.
** -------------------------------------------------------------------------*/

package postproc

import (
	"image"
)

// SsdPostProcessing reads the TFLite detection postprocess layout:
// boxes [ymin, xmin, ymax, xmax], class ids and scores in three outputs.
type SsdPostProcessing struct {
	PostProcessing
}

func (p SsdPostProcessing) Extract(outputs []Output, scoreTh float32, width int, height int) []Candidate {
	cands := []Candidate{}
	if len(outputs) < 3 {
		return cands
	}

	l := outputs[0].Data
	c := outputs[1].Data
	s := outputs[2].Data
	w := float32(width)
	h := float32(height)

	for idx := 0; 4*idx+3 < len(l) && idx < len(c) && idx < len(s); idx++ {
		if s[idx] <= scoreTh {
			continue
		}
		box := image.Rect(int(l[4*idx+1]*w), int(l[4*idx]*h), int(l[4*idx+3]*w), int(l[4*idx+2]*h))
		cands = append(cands, Candidate{
			ClassID:    int(c[idx]),
			Confidence: s[idx],
			Box:        box,
		})
	}
	return cands
}
