package detector

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/mpromonet/gin-yolo3/internal/config"
	"github.com/mpromonet/gin-yolo3/internal/models"
	"github.com/mpromonet/gin-yolo3/internal/postproc"
)

// DarknetHost loads .cfg/.weights pairs through OpenCV's DNN module.
type DarknetHost struct {
	Backend gocv.NetBackendType
	Target  gocv.NetTargetType
}

func NewDarknetHost(backend string, target string) DarknetHost {
	return DarknetHost{
		Backend: gocv.ParseNetBackend(backend),
		Target:  gocv.ParseNetTarget(target),
	}
}

func (h DarknetHost) Load(weights string, network string) (Network, error) {
	if err := config.RequireFile("model weights", weights); err != nil {
		return nil, err
	}
	if err := config.RequireFile("network config", network); err != nil {
		return nil, err
	}

	// OpenCV aborts on some malformed darknet files instead of reporting them
	if err := checkDarknetFiles(weights, network); err != nil {
		return nil, err
	}

	net := gocv.ReadNet(weights, network)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("read %s: %w", network, models.ErrEmptyNetwork)
	}

	if err := net.SetPreferableBackend(h.Backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(h.Target); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	names := outputNames(&net)
	log.WithFields(log.Fields{"weights": weights, "outputs": names}).Debug("[Darknet] network loaded")

	return &darknetNetwork{net: net, outputs: names}, nil
}

type darknetNetwork struct {
	net     gocv.Net
	outputs []string
}

func (d *darknetNetwork) Forward(img gocv.Mat, size image.Point) ([]postproc.Output, error) {
	blob := Blob(img, size)
	defer blob.Close()

	d.net.SetInput(blob, "")

	outs := d.net.ForwardLayers(d.outputs)
	defer func() {
		for _, o := range outs {
			o.Close()
		}
	}()

	outputs := make([]postproc.Output, 0, len(outs))
	for _, o := range outs {
		out, err := matToOutput(o)
		if err != nil {
			return nil, fmt.Errorf("read output layer: %w", err)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (d *darknetNetwork) Close() error {
	return d.net.Close()
}

// outputNames lists the unconnected output layers, every YOLO head.
func outputNames(net *gocv.Net) []string {
	var names []string
	for _, i := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(i)
		name := layer.GetName()
		layer.Close()
		if name != "_input" {
			names = append(names, name)
		}
	}
	return names
}

// darknet weights start with major, minor, revision and a seen counter, the
// counter being 32 bits wide in the oldest format
const darknetHeaderSize = 4 * 4

func checkDarknetFiles(weights string, network string) error {
	st, err := os.Stat(weights)
	if err != nil {
		return fmt.Errorf("stat %s: %w", weights, err)
	}
	if st.Size() < darknetHeaderSize {
		return fmt.Errorf("%s is too short for darknet weights: %w", weights, models.ErrEmptyNetwork)
	}

	f, err := os.Open(network)
	if err != nil {
		return fmt.Errorf("open %s: %w", network, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if line == "[net]" || line == "[network]" {
			return nil
		}
		break
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", network, err)
	}
	return fmt.Errorf("%s does not start with a [net] section: %w", network, models.ErrEmptyNetwork)
}
