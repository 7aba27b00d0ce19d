// Package server exposes a detector over HTTP with gin.
package server

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"github.com/mpromonet/gin-yolo3/internal/models"
)

// MaxImageSize bounds the request body of the detection endpoints.
const MaxImageSize = 10 << 20

type Detector interface {
	DetectBytes(ctx context.Context, data []byte) ([]models.Detection, error)
	AnnotateBytes(ctx context.Context, data []byte) ([]byte, []models.Detection, error)
}

type Handler struct {
	det Detector
}

func NewHandler(det Detector) *Handler {
	return &Handler{det: det}
}

// NewRouter wires the detection endpoints. When staticDir is not empty its
// files are served from "/".
func NewRouter(det Detector, staticDir string) *gin.Engine {
	h := NewHandler(det)

	r := gin.New()
	r.Use(gin.Recovery(), RequestID())
	if staticDir != "" {
		r.Use(static.Serve("/", static.LocalFile(staticDir, false)))
	}

	r.POST("/runmodel", h.RunModel)
	r.POST("/annotate", h.Annotate)
	r.GET("/healthz", Health)
	r.HEAD("/healthz", Health)
	return r
}

// RunModel detects on the raw image in the request body and answers the
// detections as JSON.
func (h *Handler) RunModel(c *gin.Context) {
	data, ok := readImage(c)
	if !ok {
		return
	}

	dets, err := h.det.DetectBytes(c.Request.Context(), data)
	if err != nil {
		abortWithError(c, err)
		return
	}
	logger(c).WithField("detections", len(dets)).Info("[Server] runmodel")
	c.JSON(http.StatusOK, dets)
}

// Annotate answers the request image as JPEG with the detections drawn.
func (h *Handler) Annotate(c *gin.Context) {
	data, ok := readImage(c)
	if !ok {
		return
	}

	jpeg, dets, err := h.det.AnnotateBytes(c.Request.Context(), data)
	if err != nil {
		abortWithError(c, err)
		return
	}
	logger(c).WithField("detections", len(dets)).Info("[Server] annotate")
	c.Header("X-Detection-Count", strconv.Itoa(len(dets)))
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}

func Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readImage(c *gin.Context) ([]byte, bool) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxImageSize)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return nil, false
		}
		logger(c).WithError(err).Warn("[Server] cannot read body")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return nil, false
	}
	if len(data) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "image is missing"})
		return nil, false
	}
	logger(c).WithField("size", len(data)).Debug("[Server] body read")
	return data, true
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	entry := logger(c).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("[Server] detection failed")
	} else {
		entry.Debug("[Server] rejected request")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, models.ErrEmptyNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
