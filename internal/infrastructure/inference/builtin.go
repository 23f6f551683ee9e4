// Package inference provides the ports.Scorer adapters.
package inference

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

const (
	// maskThreshold applies to the min-max normalised intensity.
	maskThreshold = 200
	overlayAlpha  = 0.45
)

// Builtin is a deterministic intensity segmenter for 2-D images. It
// thresholds the normalised scan, paints the mask red over the source and
// derives class scores from the mask geometry. Volumetric NIfTI studies need
// the remote backend.
type Builtin struct{}

func NewBuiltin() *Builtin { return &Builtin{} }

func (b *Builtin) Score(ctx context.Context, in ports.ScoreInput) (*ports.ScoreResult, error) {
	if domain.IsNIfTI(in.Filename) {
		return nil, fmt.Errorf("%w: builtin scorer cannot read NIfTI volume %q", domain.ErrInference, in.Filename)
	}

	src, _, err := image.Decode(bytes.NewReader(in.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", domain.ErrInference, in.Filename, err)
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty image %q", domain.ErrInference, in.Filename)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray := normalize(src)
	seg := segment(gray)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, overlay(gray, seg.mask)); err != nil {
		return nil, fmt.Errorf("%w: encode overlay: %v", domain.ErrInference, err)
	}

	scores := classify(seg)
	return &ports.ScoreResult{
		Overlay:   buf.Bytes(),
		TumorType: argmax(scores),
		Scores:    scores,
	}, nil
}

// normalize converts to 8-bit luminance stretched to the full 0..255 range.
// A flat image normalises to all zeros.
func normalize(src image.Image) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	lo, hi := uint8(255), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := color.GrayModel.Convert(src.At(x, y)).(color.Gray).Y
			out.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: v})
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}

	if hi == lo {
		clear(out.Pix)
		return out
	}
	span := float64(hi - lo)
	for i, v := range out.Pix {
		out.Pix[i] = uint8(math.Round(255 * float64(v-lo) / span))
	}
	return out
}

type segmentation struct {
	mask      []bool
	area      float64 // masked fraction of the image
	centroidY float64 // 0 top, 1 bottom
	intensity float64 // mean normalised intensity inside the mask, 0..1
}

func segment(g *image.Gray) segmentation {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	seg := segmentation{mask: make([]bool, w*h), centroidY: 0.5}

	var count, sumY, sumV float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := g.GrayAt(x, y).Y
			if v < maskThreshold {
				continue
			}
			seg.mask[y*w+x] = true
			count++
			sumY += float64(y)
			sumV += float64(v)
		}
	}
	if count == 0 {
		return seg
	}
	seg.area = count / float64(w*h)
	if h > 1 {
		seg.centroidY = sumY / count / float64(h-1)
	}
	seg.intensity = sumV / count / 255
	return seg
}

func overlay(g *image.Gray, mask []bool) *image.RGBA {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := g.GrayAt(x, y).Y
			c := color.RGBA{R: v, G: v, B: v, A: 255}
			if mask[y*w+x] {
				c.R = uint8(float64(v)*(1-overlayAlpha) + 255*overlayAlpha)
				c.G = uint8(float64(v) * (1 - overlayAlpha))
				c.B = c.G
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out
}

// classify turns mask geometry into a softmax over the tumor labels: large
// bright regions lean Meningioma, diffuse ones Glioma, small lower-central
// ones Pituitary Tumor.
func classify(seg segmentation) map[string]float64 {
	logits := []float64{
		4*seg.area + 2*seg.intensity,
		3*(1-seg.intensity) + 2*math.Min(seg.area, 0.25),
		2*(1-math.Abs(seg.centroidY-0.6)) - 6*seg.area,
	}

	maxLogit := math.Max(logits[0], math.Max(logits[1], logits[2]))
	var sum float64
	exp := make([]float64, len(logits))
	for i, l := range logits {
		exp[i] = math.Exp(l - maxLogit)
		sum += exp[i]
	}

	scores := make(map[string]float64, len(domain.TumorLabels))
	for i, label := range domain.TumorLabels {
		scores[label] = math.Round(exp[i]/sum*1e4) / 1e4
	}
	return scores
}

// argmax breaks ties by label order.
func argmax(scores map[string]float64) string {
	best := domain.TumorLabels[0]
	for _, label := range domain.TumorLabels[1:] {
		if scores[label] > scores[best] {
			best = label
		}
	}
	return best
}
