// Package ui shows detection results in a desktop window.
package ui

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"

	"github.com/mpromonet/gin-yolo3/internal/models"
)

const (
	maxPreviewWidth  = 1280
	maxPreviewHeight = 960
)

// ShowResults opens a window with the annotated image and the detection list
// and blocks until it is closed.
func ShowResults(title string, img image.Image, dets []models.Detection) {
	a := app.New()
	w := a.NewWindow(title)

	w.SetContent(NewResultsContent(img, dets))
	w.Resize(fyne.NewSize(1200, 700))
	w.CenterOnScreen()
	w.ShowAndRun()
}

// NewResultsContent lays the image out next to one line per detection.
func NewResultsContent(img image.Image, dets []models.Detection) fyne.CanvasObject {
	preview := canvas.NewImageFromImage(Preview(img))
	preview.FillMode = canvas.ImageFillContain
	preview.SetMinSize(fyne.NewSize(640, 480))

	lines := Lines(dets)
	list := widget.NewList(
		func() int { return len(lines) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(lines[id])
		},
	)

	header := widget.NewLabelWithStyle(Summary(dets), fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	sidebar := container.NewBorder(header, nil, nil, nil, list)

	split := container.NewHSplit(
		container.NewPadded(preview),
		container.NewPadded(sidebar),
	)
	split.SetOffset(0.7)
	return split
}

// Preview downscales img to fit the window, smaller images are kept as is.
func Preview(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() <= maxPreviewWidth && b.Dy() <= maxPreviewHeight {
		return img
	}
	return imaging.Fit(img, maxPreviewWidth, maxPreviewHeight, imaging.Lanczos)
}

func Summary(dets []models.Detection) string {
	return fmt.Sprintf("%d object(s) detected", len(dets))
}

func Lines(dets []models.Detection) []string {
	lines := make([]string, len(dets))
	for i, d := range dets {
		lines[i] = d.String()
	}
	return lines
}
