package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mpromonet/gin-yolo3/internal/models"
)

type Engine string

const (
	EngineDarknet Engine = "darknet"
	EngineTFLite  Engine = "tflite"
)

type PostProcessingType string

const (
	PostProcessingYolo PostProcessingType = "yolo"
	PostProcessingSSD  PostProcessingType = "ssd"
)

type SuppressorType string

const (
	SuppressorOpenCV SuppressorType = "opencv"
	SuppressorGreedy SuppressorType = "greedy"
)

const (
	DefaultConfigPath string = "config.json"

	DefaultWidth        int     = 320
	DefaultHeight       int     = 320
	DefaultThreshold    float32 = 0.5
	DefaultNMSThreshold float32 = 0.5

	// darknet downsamples by 32, input sizes must be multiples of it (320/416/608)
	inputStride = 32
)

// Config holds everything a detector needs. It is copied by value into a
// detector and not modified afterwards.
type Config struct {
	Weights string `json:"weights"`
	Network string `json:"network"`
	Labels  string `json:"labels"`

	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Threshold    float32 `json:"threshold"`
	NMSThreshold float32 `json:"nms_threshold"`
	Draw         bool    `json:"draw"`

	Engine         Engine             `json:"engine"`
	PostProcessing PostProcessingType `json:"postprocessing"`
	Suppressor     SuppressorType     `json:"suppressor"`
	Backend        string             `json:"backend"`
	Target         string             `json:"target"`
	NumThreads     int                `json:"num_threads"`
	EdgeTPU        bool               `json:"edgetpu"`
	ReuseNetwork   bool               `json:"reuse_network"`

	LogLevel string `json:"log_level"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Weights:        "model/yolov3-tiny.weights",
		Network:        "model/yolov3-tiny.cfg",
		Labels:         "model/coco.names",
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		Threshold:      DefaultThreshold,
		NMSThreshold:   DefaultNMSThreshold,
		Draw:           true,
		Engine:         EngineDarknet,
		PostProcessing: PostProcessingYolo,
		Suppressor:     SuppressorOpenCV,
		Backend:        "opencv",
		Target:         "cpu",
		NumThreads:     4,
		LogLevel:       "info",
	}
}

// LoadConfigFile returns the defaults overlaid with the JSON file at path.
// A missing file is not an error.
func LoadConfigFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: input size %dx%d must be positive", models.ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Engine == EngineDarknet && (c.Width%inputStride != 0 || c.Height%inputStride != 0) {
		return fmt.Errorf("%w: input size %dx%d must be a multiple of %d", models.ErrInvalidConfig, c.Width, c.Height, inputStride)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v out of [0,1]", models.ErrInvalidConfig, c.Threshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("%w: nms threshold %v out of [0,1]", models.ErrInvalidConfig, c.NMSThreshold)
	}
	switch c.Engine {
	case EngineDarknet, EngineTFLite:
	default:
		return fmt.Errorf("%w: unknown engine %q", models.ErrInvalidConfig, c.Engine)
	}
	switch c.PostProcessing {
	case PostProcessingYolo, PostProcessingSSD:
	default:
		return fmt.Errorf("%w: unknown postprocessing %q", models.ErrInvalidConfig, c.PostProcessing)
	}
	switch c.Suppressor {
	case SuppressorOpenCV, SuppressorGreedy:
	default:
		return fmt.Errorf("%w: unknown suppressor %q", models.ErrInvalidConfig, c.Suppressor)
	}
	return nil
}

// Fingerprint identifies the fields that influence detection output.
func (c *Config) Fingerprint() string {
	b, _ := json.Marshal(struct {
		Weights, Network, Labels string
		Width, Height            int
		Threshold, NMSThreshold  float32
		Engine                   Engine
		PostProcessing           PostProcessingType
		Suppressor               SuppressorType
		Backend, Target          string
	}{
		c.Weights, c.Network, c.Labels,
		c.Width, c.Height,
		c.Threshold, c.NMSThreshold,
		c.Engine, c.PostProcessing, c.Suppressor,
		c.Backend, c.Target,
	})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// RequireFile fails with a *models.NotFoundError when path does not exist.
func RequireFile(what, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &models.NotFoundError{What: what, Path: path}
		}
		return fmt.Errorf("stat %s file %s: %w", what, path, err)
	}
	return nil
}
