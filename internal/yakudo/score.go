// Package yakudo computes the yakudo (sharpness) score of an image.
//
// The score is the inverse of the variance of the image's Laplacian response:
// a crisp, in-focus photo has strong edges, a widely spread Laplacian and
// therefore a low score; a properly yakudo (motion-blurred) shot scores high.
package yakudo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// scoreScale is the numerator of the inverted-variance formula. Changing it
// would shift the whole historical score distribution and the 150.0 verdict
// threshold with it.
const scoreScale = 10000.0

var (
	// ErrDecode marks image bytes that could not be decoded.
	ErrDecode = errors.New("failed to decode image")
	// ErrZeroVariance marks an image with a constant Laplacian response
	// (e.g. a flat single-color image), for which the score is undefined.
	ErrZeroVariance = errors.New("zero laplacian variance")
)

// Score decodes raw image bytes and returns their yakudo score.
func Score(data []byte) (float64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return ScoreImage(img)
}

// ScoreImage computes the yakudo score of a decoded image.
func ScoreImage(img image.Image) (float64, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return 0, fmt.Errorf("%w: empty image", ErrDecode)
	}

	// Split into per-channel planes once; the Laplacian reads each pixel's
	// neighborhood and repeated At() calls are far too slow for large photos.
	channels := rgbPlanes(img)

	response := laplacian(channels, width, height)

	variance := populationVariance(response)
	if variance == 0 {
		return 0, ErrZeroVariance
	}

	score := scoreScale / variance
	if math.IsInf(score, 0) || math.IsNaN(score) {
		return 0, ErrZeroVariance
	}
	return score, nil
}

// rgbPlanes extracts R, G and B planes as float64 values in [0, 255].
func rgbPlanes(img image.Image) [3][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var planes [3][]float64
	for i := range planes {
		planes[i] = make([]float64, width*height)
	}

	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			planes[0][idx] = float64(r >> 8)
			planes[1][idx] = float64(g >> 8)
			planes[2][idx] = float64(b >> 8)
			idx++
		}
	}
	return planes
}

// laplacian applies the 3x3 Laplacian kernel
//
//	0  1  0
//	1 -4  1
//	0  1  0
//
// to every channel plane with reflect-101 border handling and returns the
// concatenated responses of all channels and pixels.
func laplacian(planes [3][]float64, width, height int) []float64 {
	out := make([]float64, 0, 3*width*height)

	for _, plane := range planes {
		for y := 0; y < height; y++ {
			up := reflect101(y-1, height) * width
			row := y * width
			down := reflect101(y+1, height) * width
			for x := 0; x < width; x++ {
				left := reflect101(x-1, width)
				right := reflect101(x+1, width)

				v := plane[up+x] + plane[down+x] +
					plane[row+left] + plane[row+right] -
					4*plane[row+x]
				out = append(out, v)
			}
		}
	}
	return out
}

// reflect101 mirrors an out-of-range index without repeating the edge sample
// (OpenCV's BORDER_DEFAULT).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// populationVariance computes the variance of vs around their shared mean.
func populationVariance(vs []float64) float64 {
	n := float64(len(vs))

	var sum float64
	for _, v := range vs {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range vs {
		d := v - mean
		sq += d * d
	}
	return sq / n
}
