package models_test

import (
	"errors"
	"image"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpromonet/gin-yolo3/internal/models"
)

func TestDetection_String(t *testing.T) {
	d := models.Detection{Label: "dog", Probability: 0.5, Left: 10, Top: 20, Width: 30, Height: 40}
	assert.Equal(t, "dog  0.5 [10 20 30 40]", d.String())
}

func TestDetection_Rect(t *testing.T) {
	d := models.Detection{Left: -5, Top: 7, Width: 10, Height: 3}
	assert.Equal(t, image.Rect(-5, 7, 5, 10), d.Rect())
}

func TestNotFoundError(t *testing.T) {
	var err error = &models.NotFoundError{What: "weights", Path: "/nope/yolo.weights"}

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "weights")
	assert.Contains(t, err.Error(), "/nope/yolo.weights")

	var nf *models.NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "weights", nf.What)
}
