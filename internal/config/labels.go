package config

import (
	"bufio"
	"fmt"
	"image/color"
	"math/rand/v2"
	"os"
)

// DefaultPaletteSize is the number of draw colours generated, regardless of
// how many labels the model has.
const DefaultPaletteSize = 20

// Labels maps class ids to names.
type Labels []string

// LoadLabels reads one class name per line.
func LoadLabels(path string) (Labels, error) {
	if err := RequireFile("labels", path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	labels := Labels{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}
	return labels, nil
}

func (l Labels) Get(class int) string {
	label := "unknown"
	if class >= 0 && class < len(l) {
		label = l[class]
	}
	return label
}

type Palette []color.RGBA

// NewPalette returns n random opaque colours drawn from seed.
func NewPalette(n int, seed uint64) Palette {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	p := make(Palette, n)
	for i := range p {
		p[i] = color.RGBA{
			R: uint8(rng.IntN(256)),
			G: uint8(rng.IntN(256)),
			B: uint8(rng.IntN(256)),
			A: 255,
		}
	}
	return p
}

// Color wraps class ids beyond the palette size.
func (p Palette) Color(class int) color.RGBA {
	if len(p) == 0 {
		return color.RGBA{0, 255, 0, 255}
	}
	if class < 0 {
		class = -class
	}
	return p[class%len(p)]
}
