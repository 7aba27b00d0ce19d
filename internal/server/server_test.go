package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpromonet/gin-yolo3/internal/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type mockDetector struct {
	DetectBytesFunc   func(ctx context.Context, data []byte) ([]models.Detection, error)
	AnnotateBytesFunc func(ctx context.Context, data []byte) ([]byte, []models.Detection, error)
}

func (m *mockDetector) DetectBytes(ctx context.Context, data []byte) ([]models.Detection, error) {
	return m.DetectBytesFunc(ctx, data)
}

func (m *mockDetector) AnnotateBytes(ctx context.Context, data []byte) ([]byte, []models.Detection, error) {
	return m.AnnotateBytesFunc(ctx, data)
}

var car = models.Detection{ClassID: 2, Label: "car", Probability: 0.9, Left: 158, Top: 183, Width: 100, Height: 50}

func TestRunModel(t *testing.T) {
	tests := []struct {
		name           string
		body           []byte
		detect         func(ctx context.Context, data []byte) ([]models.Detection, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "detections",
			body: []byte("jpeg"),
			detect: func(ctx context.Context, data []byte) ([]models.Detection, error) {
				assert.Equal(t, []byte("jpeg"), data)
				return []models.Detection{car}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[{"class_id":2,"label":"car","probability":0.9,"left":158,"top":183,"width":100,"height":50}]`,
		},
		{
			name: "no detections",
			body: []byte("jpeg"),
			detect: func(ctx context.Context, data []byte) ([]models.Detection, error) {
				return []models.Detection{}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name:           "empty body",
			body:           nil,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"image is missing"}`,
		},
		{
			name: "invalid image",
			body: []byte("text"),
			detect: func(ctx context.Context, data []byte) ([]models.Detection, error) {
				return nil, fmt.Errorf("%w: cannot decode", models.ErrInvalidImage)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid image: cannot decode"}`,
		},
		{
			name: "missing model",
			body: []byte("jpeg"),
			detect: func(ctx context.Context, data []byte) ([]models.Detection, error) {
				return nil, &models.NotFoundError{What: "model weights", Path: "yolov3-tiny.weights"}
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"error":"the model weights file has not been found: yolov3-tiny.weights"}`,
		},
		{
			name: "internal failure",
			body: []byte("jpeg"),
			detect: func(ctx context.Context, data []byte) ([]models.Detection, error) {
				return nil, errors.New("forward failed")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"forward failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(&mockDetector{DetectBytesFunc: tt.detect}, "")
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/runmodel", bytes.NewReader(tt.body))

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestRunModel_TooLarge(t *testing.T) {
	called := false
	router := NewRouter(&mockDetector{DetectBytesFunc: func(ctx context.Context, data []byte) ([]models.Detection, error) {
		called = true
		return nil, nil
	}}, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runmodel", bytes.NewReader(make([]byte, MaxImageSize+1)))

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, called)
}

func TestAnnotate(t *testing.T) {
	router := NewRouter(&mockDetector{AnnotateBytesFunc: func(ctx context.Context, data []byte) ([]byte, []models.Detection, error) {
		return []byte{0xff, 0xd8, 0xff}, []models.Detection{car, car}, nil
	}}, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/annotate", bytes.NewReader([]byte("png")))

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "2", w.Header().Get("X-Detection-Count"))
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, w.Body.Bytes())
}

func TestAnnotate_InvalidImage(t *testing.T) {
	router := NewRouter(&mockDetector{AnnotateBytesFunc: func(ctx context.Context, data []byte) ([]byte, []models.Detection, error) {
		return nil, nil, models.ErrInvalidImage
	}}, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/annotate", bytes.NewReader([]byte("text")))

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get("X-Detection-Count"))
}

func TestHealth(t *testing.T) {
	router := NewRouter(&mockDetector{}, "")

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		t.Run(method, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(method, "/healthz", nil)

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestRequestID(t *testing.T) {
	router := NewRouter(&mockDetector{}, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>yolo</html>"), 0644))
	router := NewRouter(&mockDetector{}, dir)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "yolo")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrInvalidImage, http.StatusBadRequest},
		{fmt.Errorf("read: %w", models.ErrInvalidImage), http.StatusBadRequest},
		{&models.NotFoundError{What: "labels", Path: "coco.names"}, http.StatusServiceUnavailable},
		{models.ErrEmptyNetwork, http.StatusServiceUnavailable},
		{context.Canceled, http.StatusRequestTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
