/* ---------------------------------------------------------------------------
** This software is in the public domain, furnished "as is", without technical
** support, and with no warranty, express or implied, as to its usefulness for
** any purpose.
** -------------------------------------------------------------------------*/

package postproc

import (
	"image"
)

// Darknet YOLO rows: cx, cy, w, h, objectness, then one score per class.
const (
	yoloConfidence = 4
	yoloPrefix     = 5
)

type YoloPostProcessing struct {
	PostProcessing
}

func (p YoloPostProcessing) Extract(outputs []Output, scoreTh float32, width int, height int) []Candidate {
	cands := []Candidate{}
	for _, output := range outputs {
		cands = append(cands, p.extractBoxes(output, scoreTh, float32(width), float32(height))...)
	}
	return cands
}

func (p YoloPostProcessing) extractBoxes(output Output, scoreTh float32, width float32, height float32) []Candidate {
	cands := []Candidate{}
	if output.Cols <= yoloPrefix {
		return cands
	}

	for i := 0; i < output.Rows; i++ {
		row := output.Row(i)

		confidence := row[yoloConfidence]
		if confidence <= scoreTh {
			continue
		}

		// the class score goes through the same threshold as the objectness
		classID, score := argmax(row[yoloPrefix:])
		if score <= scoreTh {
			continue
		}

		centerX := row[0] * width
		centerY := row[1] * height
		w := row[2] * width
		h := row[3] * height
		left := int(centerX - w/2)
		top := int(centerY - h/2)

		cands = append(cands, Candidate{
			ClassID:    classID,
			Confidence: confidence,
			Box:        image.Rect(left, top, left+int(w), top+int(h)),
		})
	}
	return cands
}
