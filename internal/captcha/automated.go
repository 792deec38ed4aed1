package captcha

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"sort"
	"strings"
)

// DefaultThreshold is the binarisation cut-off used when none is set
const DefaultThreshold = 128

// Classifier recognises the text in an image. Offline recognisers such as
// CommandClassifier and remote services such as TwoCaptcha both plug in here.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (string, error)
}

// AutomatedSolver solves challenges without a human by handing the image to
// a Classifier, optionally cleaning it up first
type AutomatedSolver struct {
	Classifier Classifier
	Preprocess bool
	Threshold  uint8
}

func (s *AutomatedSolver) Solve(ctx context.Context, img []byte) (string, error) {
	if s.Preprocess {
		threshold := s.Threshold
		if threshold == 0 {
			threshold = DefaultThreshold
		}
		cleaned, err := Preprocess(img, threshold)
		if err != nil {
			return "", err
		}
		img = cleaned
	}

	text, err := s.Classifier.Classify(ctx, img)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Preprocess converts the image to grayscale, binarises it at threshold and
// removes speckle noise with a 3x3 median filter. The result is PNG encoded.
func Preprocess(data []byte, threshold uint8) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode captcha image: %w", err)
	}

	b := src.Bounds()
	bin := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(src.At(x, y)).(color.Gray)
			if g.Y >= threshold {
				bin.SetGray(x, y, color.Gray{Y: 255})
			} else {
				bin.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	out := medianFilter(bin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode captcha image: %w", err)
	}
	return buf.Bytes(), nil
}

func medianFilter(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	window := make([]uint8, 0, 9)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px, py := clamp(x+dx, b.Min.X, b.Max.X-1), clamp(y+dy, b.Min.Y, b.Max.Y-1)
					window = append(window, src.GrayAt(px, py).Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			dst.SetGray(x, y, color.Gray{Y: window[len(window)/2]})
		}
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
