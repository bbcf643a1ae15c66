package imageprocessor

import (
	"image"

	"rastersim/types"

	"gocv.io/x/gocv"
)

// DenoiseKernelSize is the aperture of every smoothing and morphology step
const DenoiseKernelSize = 5

// Denoise suppresses speckle on an 8-bit image: Gaussian blur, median blur,
// then opening and closing with an elliptical element. Opening runs before
// closing. The caller owns the returned Mat.
func Denoise(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), types.Degenerate("cannot denoise empty image")
	}

	work := gocv.NewMat()
	defer work.Close()
	src.ConvertTo(&work, gocv.MatTypeCV8U)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(work, &blurred, image.Point{X: DenoiseKernelSize, Y: DenoiseKernelSize}, 0, 0, gocv.BorderDefault)

	median := gocv.NewMat()
	defer median.Close()
	gocv.MedianBlur(blurred, &median, DenoiseKernelSize)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: DenoiseKernelSize, Y: DenoiseKernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(median, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)

	return closed, nil
}

// ValueChannel returns the HSV value channel of a color image, or a copy of
// a single-channel image (whose value channel is itself).
func ValueChannel(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV)

	planes := gocv.Split(hsv)
	for _, p := range planes[:2] {
		p.Close()
	}
	return planes[2]
}
