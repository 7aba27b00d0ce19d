package config

import (
	"flag"
	"strconv"
)

type float32Value struct{ p *float32 }

func (v float32Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatFloat(float64(*v.p), 'g', -1, 32)
}

func (v float32Value) Set(s string) error {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	*v.p = float32(f)
	return nil
}

type enumValue[T ~string] struct{ p *T }

func (v enumValue[T]) String() string {
	if v.p == nil {
		return ""
	}
	return string(*v.p)
}

func (v enumValue[T]) Set(s string) error {
	*v.p = T(s)
	return nil
}

// BindFlags registers one flag per field, with the current values as defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Weights, "weights", c.Weights, "path to the model weights (darknet .weights or .tflite)")
	fs.StringVar(&c.Network, "network", c.Network, "path to the darknet network config")
	fs.StringVar(&c.Labels, "labels", c.Labels, "path to the label file, one class per line")
	fs.IntVar(&c.Width, "width", c.Width, "network input width")
	fs.IntVar(&c.Height, "height", c.Height, "network input height")
	fs.Var(float32Value{&c.Threshold}, "threshold", "confidence threshold")
	fs.Var(float32Value{&c.NMSThreshold}, "nms", "non maximum suppression overlap threshold")
	fs.BoolVar(&c.Draw, "draw", c.Draw, "draw detections on the image")
	fs.Var(enumValue[Engine]{&c.Engine}, "engine", "inference engine: darknet or tflite")
	fs.Var(enumValue[PostProcessingType]{&c.PostProcessing}, "postprocessing", "output layout: yolo or ssd")
	fs.Var(enumValue[SuppressorType]{&c.Suppressor}, "suppressor", "non maximum suppression: opencv or greedy")
	fs.StringVar(&c.Backend, "backend", c.Backend, "opencv dnn backend")
	fs.StringVar(&c.Target, "target", c.Target, "opencv dnn target")
	fs.IntVar(&c.NumThreads, "threads", c.NumThreads, "tflite interpreter threads")
	fs.BoolVar(&c.EdgeTPU, "edgetpu", c.EdgeTPU, "use the edgetpu delegate (tflite)")
	fs.BoolVar(&c.ReuseNetwork, "reuse-network", c.ReuseNetwork, "load the network once instead of per image")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
}

// ParseFlags reads -config, loads that file and parses args again so that
// flags given on the command line win over the file.
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := NewDefaultConfig()
	path := fs.String("config", DefaultConfigPath, "path to the JSON configuration file")
	cfg.BindFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	loaded, err := LoadConfigFile(*path)
	if err != nil {
		return nil, err
	}
	*cfg = *loaded

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
