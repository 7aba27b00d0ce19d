package detector

import (
	"fmt"
	"image"

	"github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates/edgetpu"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/mpromonet/gin-yolo3/internal/config"
	"github.com/mpromonet/gin-yolo3/internal/models"
	"github.com/mpromonet/gin-yolo3/internal/postproc"
)

// TFLiteHost loads a .tflite model; the network path is not used.
type TFLiteHost struct {
	Threads int
	EdgeTPU bool
}

type tfliteNetwork struct {
	model  *tflite.Model
	interp *tflite.Interpreter
}

func (h TFLiteHost) Load(weights string, _ string) (Network, error) {
	if err := config.RequireFile("tflite model", weights); err != nil {
		return nil, err
	}

	model := tflite.NewModelFromFile(weights)
	if model == nil {
		return nil, fmt.Errorf("load %s: %w", weights, models.ErrEmptyNetwork)
	}

	options := tflite.NewInterpreterOptions()
	defer options.Delete()

	if h.Threads > 0 {
		options.SetNumThread(h.Threads)
	}

	if h.EdgeTPU {
		devices, err := edgetpu.DeviceList()
		if err != nil {
			log.Warnf("[TFLite] could not get EdgeTPU devices: %v", err)
		}
		if len(devices) == 0 {
			log.Warn("[TFLite] no EdgeTPU devices found")
		} else {
			options.AddDelegate(edgetpu.New(devices[0]))
		}
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("create interpreter: %w", models.ErrEmptyNetwork)
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("allocate tensors: status %v", status)
	}
	return &tfliteNetwork{model: model, interp: interpreter}, nil
}

// Forward sizes the input from the model's own input tensor.
func (n *tfliteNetwork) Forward(img gocv.Mat, _ image.Point) ([]postproc.Output, error) {
	input := n.interp.GetInputTensor(0)
	log.WithFields(log.Fields{"name": input.Name(), "shape": getTensorShape(input), "type": input.Type()}).Debug("[TFLite] input")

	if err := fillInput(input, img); err != nil {
		return nil, err
	}

	if status := n.interp.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("invoke failed: status %v", status)
	}

	outputs := []postproc.Output{}
	for idx := 0; idx < n.interp.GetOutputTensorCount(); idx++ {
		output := n.interp.GetOutputTensor(idx)
		log.WithFields(log.Fields{"name": output.Name(), "shape": getTensorShape(output), "type": output.Type()}).Debug("[TFLite] output")
		outputs = append(outputs, tensorToOutput(output))
	}
	return outputs, nil
}

func (n *tfliteNetwork) Close() error {
	n.interp.Delete()
	n.model.Delete()
	return nil
}

func getTensorShape(tensor *tflite.Tensor) []int {
	shape := []int{}
	for idx := 0; idx < tensor.NumDims(); idx++ {
		shape = append(shape, tensor.Dim(idx))
	}
	return shape
}

func fillInput(input *tflite.Tensor, img gocv.Mat) error {
	wantedHeight := input.Dim(1)
	wantedWidth := input.Dim(2)

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(rgb, &resized, image.Pt(wantedWidth, wantedHeight), 0, 0, gocv.InterpolationDefault)

	switch input.Type() {
	case tflite.UInt8:
		v, err := resized.DataPtrUint8()
		if err != nil {
			return err
		}
		copy(input.UInt8s(), v)
	case tflite.Float32:
		scaled := gocv.NewMat()
		defer scaled.Close()
		resized.ConvertTo(&scaled, gocv.MatTypeCV32F)
		scaled.MultiplyFloat(1.0 / 255.0)
		v, err := scaled.DataPtrFloat32()
		if err != nil {
			return err
		}
		copy(input.Float32s(), v)
	default:
		return fmt.Errorf("unsupported input tensor type %v", input.Type())
	}
	return nil
}

// tensorToOutput flattens a tensor to (total/last, last); uint8 values are
// rescaled to [0,1].
func tensorToOutput(output *tflite.Tensor) postproc.Output {
	var loc []float32
	switch output.Type() {
	case tflite.UInt8:
		f := output.UInt8s()
		loc = make([]float32, len(f))
		for i, v := range f {
			loc[i] = float32(v) / 255
		}
	case tflite.Float32:
		f := output.Float32s()
		loc = make([]float32, len(f))
		copy(loc, f)
	}

	shape := getTensorShape(output)
	cols := 1
	if len(shape) > 0 && shape[len(shape)-1] > 0 {
		cols = shape[len(shape)-1]
	}
	return postproc.NewOutput(len(loc)/cols, cols, loc)
}
