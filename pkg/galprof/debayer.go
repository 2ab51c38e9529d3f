package galprof

import (
	"fmt"
	"strings"
)

// redOffsets gives the (row, col) of the red pixel inside the 2x2 tile that
// starts at the image's top-left corner.
var redOffsets = map[string][2]int{
	"RGGB": {0, 0},
	"GRBG": {0, 1},
	"GBRG": {1, 0},
	"BGGR": {1, 1},
}

// DebayerLuminance demosaics a raw colour-filter-array image by bilinear
// interpolation and returns its luminance, (R + G + B) / 3 per pixel. Edge
// pixels use replicated neighbours.
func DebayerLuminance(img *Image, pattern string) (*Image, error) {
	off, ok := redOffsets[strings.ToUpper(pattern)]
	if !ok {
		return nil, fmt.Errorf("bayer pattern %q: %w", pattern, ErrUnrecognizedParameterSpec)
	}
	width, height := img.cols, img.rows
	out := NewImage(height, width, img.pixelscale, img.origin)

	px := func(x, y int) float64 {
		return img.data[clampInt(y, 0, height-1)*width+clampInt(x, 0, width-1)]
	}

	for y := 0; y < height; y++ {
		redRow := (y+off[0])%2 == 0
		for x := 0; x < width; x++ {
			redCol := (x+off[1])%2 == 0
			var r, g, b float64

			switch {
			case redRow && redCol:
				r = px(x, y)
				g = (px(x-1, y) + px(x+1, y) + px(x, y-1) + px(x, y+1)) / 4
				b = (px(x-1, y-1) + px(x+1, y-1) + px(x-1, y+1) + px(x+1, y+1)) / 4

			case redRow:
				r = (px(x-1, y) + px(x+1, y)) / 2
				g = px(x, y)
				b = (px(x, y-1) + px(x, y+1)) / 2

			case redCol:
				r = (px(x, y-1) + px(x, y+1)) / 2
				g = px(x, y)
				b = (px(x-1, y) + px(x+1, y)) / 2

			default:
				r = (px(x-1, y-1) + px(x+1, y-1) + px(x-1, y+1) + px(x+1, y+1)) / 4
				g = (px(x-1, y) + px(x+1, y) + px(x, y-1) + px(x, y+1)) / 4
				b = px(x, y)
			}

			out.data[y*width+x] = (r + g + b) / 3
		}
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
