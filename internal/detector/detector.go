package detector

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/mpromonet/gin-yolo3/internal/config"
	"github.com/mpromonet/gin-yolo3/internal/models"
	"github.com/mpromonet/gin-yolo3/internal/postproc"
)

// Detector runs a YOLO network over single images. Configuration, labels and
// palette are fixed at construction, so Detect may be called concurrently.
type Detector struct {
	cfg     config.Config
	labels  config.Labels
	palette config.Palette

	host       Host
	pp         postproc.PostProcessing
	suppressor postproc.Suppressor

	// cached network, only with cfg.ReuseNetwork
	mu  sync.Mutex
	net Network
}

type Option func(*Detector)

func WithHost(h Host) Option {
	return func(d *Detector) { d.host = h }
}

func WithPostProcessing(pp postproc.PostProcessing) Option {
	return func(d *Detector) { d.pp = pp }
}

func WithSuppressor(s postproc.Suppressor) Option {
	return func(d *Detector) { d.suppressor = s }
}

func WithPalette(p config.Palette) Option {
	return func(d *Detector) { d.palette = p }
}

// New validates cfg and reads the label file. The network itself is loaded
// on each Detect call unless cfg.ReuseNetwork is set.
func New(cfg config.Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	labels, err := config.LoadLabels(cfg.Labels)
	if err != nil {
		return nil, err
	}

	d := &Detector{
		cfg:     cfg,
		labels:  labels,
		palette: config.NewPalette(config.DefaultPaletteSize, uint64(time.Now().UnixNano())),
	}

	switch cfg.Engine {
	case config.EngineTFLite:
		d.host = TFLiteHost{Threads: cfg.NumThreads, EdgeTPU: cfg.EdgeTPU}
	default:
		d.host = NewDarknetHost(cfg.Backend, cfg.Target)
	}

	switch cfg.PostProcessing {
	case config.PostProcessingSSD:
		d.pp = postproc.SsdPostProcessing{}
	default:
		d.pp = postproc.YoloPostProcessing{}
	}

	switch cfg.Suppressor {
	case config.SuppressorGreedy:
		d.suppressor = postproc.GreedySuppressor{}
	default:
		d.suppressor = OpenCVSuppressor{}
	}

	for _, opt := range opts {
		opt(d)
	}

	log.WithFields(log.Fields{
		"engine": cfg.Engine,
		"labels": len(labels),
		"size":   fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
	}).Debug("[Detector] created")

	return d, nil
}

func (d *Detector) Config() config.Config {
	return d.cfg
}

func (d *Detector) Labels() config.Labels {
	return d.labels
}

// Detect runs the network over img. When drawing is enabled the detections
// are drawn onto img in place.
func (d *Detector) Detect(img *gocv.Mat) ([]models.Detection, error) {
	if img == nil || img.Empty() {
		return nil, models.ErrInvalidImage
	}

	start := time.Now()
	outputs, err := d.forward(*img)
	if err != nil {
		return nil, err
	}
	inference := time.Since(start)

	kept := postproc.Process(outputs, d.pp, d.suppressor, d.cfg.Threshold, d.cfg.NMSThreshold, img.Cols(), img.Rows())

	dets := make([]models.Detection, 0, len(kept))
	for _, c := range kept {
		dets = append(dets, models.Detection{
			ClassID:     c.ClassID,
			Label:       d.labels.Get(c.ClassID),
			Probability: c.Confidence,
			Left:        c.Box.Min.X,
			Top:         c.Box.Min.Y,
			Width:       c.Box.Dx(),
			Height:      c.Box.Dy(),
		})
	}

	if d.cfg.Draw {
		d.Draw(img, dets)
	}

	log.WithFields(log.Fields{
		"detections": len(dets),
		"inference":  inference,
		"total":      time.Since(start),
	}).Debug("[Detector] detect")

	return dets, nil
}

func (d *Detector) forward(img gocv.Mat) ([]postproc.Output, error) {
	size := image.Pt(d.cfg.Width, d.cfg.Height)

	if !d.cfg.ReuseNetwork {
		net, err := d.host.Load(d.cfg.Weights, d.cfg.Network)
		if err != nil {
			return nil, err
		}
		defer net.Close()
		return net.Forward(img, size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.net == nil {
		net, err := d.host.Load(d.cfg.Weights, d.cfg.Network)
		if err != nil {
			return nil, err
		}
		d.net = net
	}
	return d.net.Forward(img, size)
}

// Draw renders dets on img with the detector's palette.
func (d *Detector) Draw(img *gocv.Mat, dets []models.Detection) {
	Draw(img, dets, d.palette)
}

// DetectFile reads the image at path and detects on it.
func (d *Detector) DetectFile(path string) ([]models.Detection, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("read %s: %w", path, models.ErrInvalidImage)
	}
	return d.Detect(&img)
}

// DetectImage detects on an in-memory image.
func (d *Detector) DetectImage(src image.Image) ([]models.Detection, error) {
	img, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidImage, err)
	}
	defer img.Close()
	return d.Detect(&img)
}

// DetectBytes decodes an encoded image (jpeg, png, bmp...) and detects on it.
func (d *Detector) DetectBytes(ctx context.Context, data []byte) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return d.Detect(&img)
}

// AnnotateBytes is DetectBytes returning the image, with detections drawn,
// encoded as JPEG.
func (d *Detector) AnnotateBytes(ctx context.Context, data []byte) ([]byte, []models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, nil, err
	}
	defer img.Close()

	dets, err := d.Detect(&img)
	if err != nil {
		return nil, nil, err
	}
	if !d.cfg.Draw {
		d.Draw(&img, dets)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, dets, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.net == nil {
		return nil
	}
	err := d.net.Close()
	d.net = nil
	return err
}

func decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, fmt.Errorf("%w: empty body", models.ErrInvalidImage)
	}
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", models.ErrInvalidImage, err)
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("%w: cannot decode", models.ErrInvalidImage)
	}
	return img, nil
}
