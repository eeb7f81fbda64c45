package analysis

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/webp"
)

// ImageStats holds per-channel pixel statistics and dimensions for one image.
// Means and StdDevs have one entry per statistical channel (R, G, B for
// color images, a single luminance channel for grayscale).
type ImageStats struct {
	Width   int
	Height  int
	Color   bool
	Means   []float64
	StdDevs []float64
}

// Area returns the pixel count
func (s *ImageStats) Area() int {
	return s.Width * s.Height
}

// Channels returns the number of statistical channels
func (s *ImageStats) Channels() int {
	return len(s.Means)
}

// Brightness returns the mean of the channel means
func (s *ImageStats) Brightness() float64 {
	if len(s.Means) == 0 {
		return 0
	}
	var sum float64
	for _, m := range s.Means {
		sum += m
	}
	return sum / float64(len(s.Means))
}

// MaxStdDev returns the largest channel standard deviation, the texture
// variation proxy used for blur detection
func (s *ImageStats) MaxStdDev() float64 {
	var max float64
	for _, sd := range s.StdDevs {
		if sd > max {
			max = sd
		}
	}
	return max
}

// ReadStats decodes the image at path (JPEG, PNG or WebP) and computes
// channel statistics in a single pass
func ReadStats(path string) (*ImageStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image %dx%d", w, h)
	}

	if _, gray := img.(*image.Gray); gray {
		mean, sd := grayChannelStats(img)
		return &ImageStats{
			Width:   w,
			Height:  h,
			Color:   false,
			Means:   []float64{mean},
			StdDevs: []float64{sd},
		}, nil
	}

	means, sds := rgbChannelStats(img)
	return &ImageStats{
		Width:   w,
		Height:  h,
		Color:   true,
		Means:   means,
		StdDevs: sds,
	}, nil
}

func rgbChannelStats(img image.Image) ([]float64, []float64) {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())

	var sum, sumSq [3]float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			px := [3]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8)}
			for i, v := range px {
				sum[i] += v
				sumSq[i] += v * v
			}
		}
	}

	means := make([]float64, 3)
	sds := make([]float64, 3)
	for i := 0; i < 3; i++ {
		means[i] = sum[i] / n
		variance := sumSq[i]/n - means[i]*means[i]
		if variance < 0 {
			variance = 0
		}
		sds[i] = math.Sqrt(variance)
	}
	return means, sds
}

func grayChannelStats(img image.Image) (float64, float64) {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())

	var sum, sumSq float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			v := float64(r >> 8)
			sum += v
			sumSq += v * v
		}
	}

	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
