/*
 * SPDX-License-Identifier: Unlicense
 *
 * This is free and unencumbered software released into the public domain.
 *
 * Anyone is free to copy, modify, publish, use, compile, sell, or distribute this
 * software, either in source code form or as a compiled binary, for any purpose,
 * commercial or non-commercial, and by any means.
 *
 * For more information, please refer to <http://unlicense.org/>
 */

// Package postproc turns raw network outputs into detections. It does not
// depend on OpenCV so it can be exercised with synthetic tensors.
package postproc

import (
	"image"
)

// Output is one output layer copied out of the inference engine, row-major.
type Output struct {
	Rows int
	Cols int
	Data []float32
}

func NewOutput(rows, cols int, data []float32) Output {
	return Output{Rows: rows, Cols: cols, Data: data}
}

func (o Output) Row(i int) []float32 {
	return o.Data[i*o.Cols : (i+1)*o.Cols]
}

// Candidate is a detection before non-maximum suppression.
type Candidate struct {
	ClassID    int
	Confidence float32
	Box        image.Rectangle
}

type PostProcessing interface {
	Extract(outputs []Output, scoreTh float32, width int, height int) []Candidate
}

// Suppressor returns the indices of boxes to keep, greedy by descending
// score, dropping boxes whose overlap with a kept box exceeds overlapTh.
type Suppressor interface {
	Suppress(boxes []image.Rectangle, scores []float32, scoreTh float32, overlapTh float32) []int
}

// Suppress runs s over the candidates and returns the survivors in the order
// s reports them.
func Suppress(cands []Candidate, s Suppressor, scoreTh float32, nmsTh float32) []Candidate {
	kept := []Candidate{}
	if len(cands) == 0 {
		return kept
	}

	bboxes := make([]image.Rectangle, len(cands))
	confidences := make([]float32, len(cands))
	for i, c := range cands {
		bboxes[i] = c.Box
		confidences[i] = c.Confidence
	}

	for _, idx := range s.Suppress(bboxes, confidences, scoreTh, nmsTh) {
		if idx >= 0 && idx < len(cands) {
			kept = append(kept, cands[idx])
		}
	}
	return kept
}

// Process is Extract followed by Suppress, the score threshold doubling as
// the suppression score threshold.
func Process(outputs []Output, pp PostProcessing, s Suppressor, scoreTh float32, nmsTh float32, width int, height int) []Candidate {
	return Suppress(pp.Extract(outputs, scoreTh, width, height), s, scoreTh, nmsTh)
}

func argmax(f []float32) (int, float32) {
	r, m := 0, f[0]
	for i, v := range f {
		if v > m {
			m = v
			r = i
		}
	}
	return r, m
}
