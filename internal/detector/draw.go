package detector

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/mpromonet/gin-yolo3/internal/config"
	"github.com/mpromonet/gin-yolo3/internal/models"
)

const (
	labelFont      = gocv.FontHersheyTriplex
	labelFontScale = 0.5
	filled         = -1
)

var white = color.RGBA{255, 255, 255, 255}

// Draw outlines every detection and writes "label xx.x%" above it.
func Draw(img *gocv.Mat, dets []models.Detection, palette config.Palette) {
	for _, d := range dets {
		col := palette.Color(d.ClassID)
		text := fmt.Sprintf("%s %.1f%%", d.Label, d.Probability*100)

		gocv.Rectangle(img, d.Rect(), col, 1)

		textSize, baseline := gocv.GetTextSizeWithBaseline(text, labelFont, labelFontScale, 1)

		x1 := d.Left
		if x1 < 0 {
			x1 = 0
		}
		background := image.Rect(x1, d.Top-textSize.Y-baseline, x1+textSize.X, d.Top)
		gocv.Rectangle(img, background, col, filled)
		gocv.PutText(img, text, image.Pt(x1, d.Top-baseline), labelFont, labelFontScale, white, 1)
	}
}
