package imageprocessor

import (
	"errors"
	"math"
	"testing"

	"rastersim/types"

	"gocv.io/x/gocv"
)

func ramp(rows, cols, channels int) types.Raster {
	r := types.NewRaster(rows, cols, channels)
	for i := range r.Data {
		r.Data[i] = float64(i % 251)
	}
	return r
}

func TestRasterMatRoundTrip(t *testing.T) {
	for _, channels := range []int{1, 3} {
		r := ramp(7, 5, channels)
		r.Data[3] = math.NaN()
		r.GeoTransform = [6]float64{100, 2, 0, 50, 0, -2}
		r.Source = "ramp"

		m, err := RasterToMat(r)
		if err != nil {
			t.Fatalf("RasterToMat: %v", err)
		}
		if m.Rows() != 7 || m.Cols() != 5 || m.Channels() != channels {
			t.Fatalf("mat is %dx%dx%d", m.Rows(), m.Cols(), m.Channels())
		}
		back, err := MatToRaster(m, r)
		m.Close()
		if err != nil {
			t.Fatalf("MatToRaster: %v", err)
		}

		if !back.Shape().Equal(r.Shape()) || back.GeoTransform != r.GeoTransform || back.Source != "ramp" {
			t.Fatalf("metadata lost: %s %v %q", back.Shape(), back.GeoTransform, back.Source)
		}
		for i := range r.Data {
			if math.IsNaN(r.Data[i]) {
				if !math.IsNaN(back.Data[i]) {
					t.Fatalf("sample %d: NaN became %v", i, back.Data[i])
				}
				continue
			}
			if back.Data[i] != r.Data[i] {
				t.Fatalf("sample %d: %v != %v", i, back.Data[i], r.Data[i])
			}
		}
	}
}

func TestRasterToMatRejectsEmpty(t *testing.T) {
	m, err := RasterToMat(types.Raster{})
	defer m.Close()
	if !errors.Is(err, types.ErrDegenerateInput) {
		t.Fatalf("expected degenerate input, got %v", err)
	}
}

func TestToByteMatZeroesNaN(t *testing.T) {
	r := types.NewRaster(2, 2, 1)
	copy(r.Data, []float64{math.NaN(), 10, 254.6, 255})

	m, err := ToByteMat(r)
	if err != nil {
		t.Fatalf("ToByteMat: %v", err)
	}
	defer m.Close()

	if m.Type() != gocv.MatTypeCV8UC1 {
		t.Fatalf("type = %v", m.Type())
	}
	if got := m.GetUCharAt(0, 0); got != 0 {
		t.Errorf("NaN sample = %d", got)
	}
	if got := m.GetUCharAt(0, 1); got != 10 {
		t.Errorf("sample = %d", got)
	}
	if got := m.GetUCharAt(1, 1); got != 255 {
		t.Errorf("peak sample = %d", got)
	}
	if !math.IsNaN(r.Data[0]) {
		t.Error("input raster was modified")
	}
}

func TestResampleGrid(t *testing.T) {
	primary := ramp(20, 20, 1)
	secondary := ramp(40, 40, 1)
	secondary.GeoTransform = [6]float64{500000, 1.5, 0, 4000000, 0, -1.5}

	a, b, err := Resample(primary, secondary)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if !a.Shape().Equal(primary.Shape()) || !b.Shape().Equal(primary.Shape()) {
		t.Fatalf("shapes %s / %s", a.Shape(), b.Shape())
	}
	want := [6]float64{500000, 3, 0, 4000000, 0, -3}
	if b.GeoTransform != want {
		t.Fatalf("geotransform = %v, want %v", b.GeoTransform, want)
	}

	a.Data[0] = -1
	if primary.Data[0] == -1 {
		t.Fatal("resampled primary aliases its input")
	}
}

func TestResampleChannelMismatch(t *testing.T) {
	_, _, err := Resample(ramp(10, 10, 1), ramp(12, 12, 3))
	if !errors.Is(err, types.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
}

func TestDenoise(t *testing.T) {
	img := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV8UC1)
	defer img.Close()
	img.SetTo(gocv.NewScalar(100, 0, 0, 0))
	img.SetUCharAt(8, 8, 255)

	out, err := Denoise(img)
	if err != nil {
		t.Fatalf("Denoise: %v", err)
	}
	defer out.Close()

	if out.Type() != gocv.MatTypeCV8UC1 || out.Rows() != 16 || out.Cols() != 16 {
		t.Fatalf("output %dx%d type %v", out.Rows(), out.Cols(), out.Type())
	}
	// an isolated speck does not survive the median pass
	if got := out.GetUCharAt(8, 8); got > 110 {
		t.Fatalf("speck survived: %d", got)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	res, err := Denoise(empty)
	res.Close()
	if !errors.Is(err, types.ErrDegenerateInput) {
		t.Fatalf("expected degenerate input, got %v", err)
	}
}

func TestValueChannel(t *testing.T) {
	img := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.SetTo(gocv.NewScalar(30, 60, 200, 0))

	v := ValueChannel(img)
	defer v.Close()
	if v.Channels() != 1 {
		t.Fatalf("channels = %d", v.Channels())
	}
	if got := v.GetUCharAt(2, 2); got != 200 {
		t.Fatalf("value = %d, want the max channel 200", got)
	}
}
