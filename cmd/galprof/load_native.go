//go:build !purego && !js

package main

import (
	"fmt"

	"gocv.io/x/gocv"
)

// loadNonFitsImage reads any OpenCV-supported image as raw grey levels.
func loadNonFitsImage(path string) ([]float64, int, int, error) {
	src := gocv.IMRead(path, gocv.IMReadUnchanged)
	if src.Empty() {
		return nil, 0, 0, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	if src.Channels() > 1 {
		gray := gocv.NewMat()
		defer gray.Close()
		code := gocv.ColorBGRToGray
		if src.Channels() == 4 {
			code = gocv.ColorBGRAToGray
		}
		gocv.CvtColor(src, &gray, code)
		gray.CopyTo(&src)
	}

	w, h := src.Cols(), src.Rows()

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	src.ConvertTo(&floatMat, gocv.MatTypeCV32F)

	data, err := floatMat.DataPtrFloat32()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading pixels of %s: %w", path, err)
	}
	pixels := make([]float64, w*h)
	for i := range pixels {
		pixels[i] = float64(data[i])
	}
	return pixels, w, h, nil
}
