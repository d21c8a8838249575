package imaging

import (
	"image"
	"math"
)

// DTypeInfo describes an image the way an array library would: element type,
// dimensionality, shape and raw value range, plus the ranges after the usual
// dtype conversions.
type DTypeInfo struct {
	DType    string `json:"dtype"`
	NDim     int    `json:"ndim"`
	Shape    []int  `json:"shape"`
	Channels int    `json:"channels"`

	// Min and Max are raw integer values in the native dtype.
	Min int `json:"min"`
	Max int `json:"max"`

	// FloatMin and FloatMax are the range after conversion to float in [0, 1].
	FloatMin float64 `json:"float_min"`
	FloatMax float64 `json:"float_max"`

	// Int16Min and Int16Max are the range after conversion to int16.
	Int16Min int `json:"int16_min"`
	Int16Max int `json:"int16_max"`

	// Ubyte range after conversion to uint8.
	UbyteMin int `json:"ubyte_min"`
	UbyteMax int `json:"ubyte_max"`
}

// DTypeOf returns "uint16" for 16-bit image types and "uint8" otherwise.
func DTypeOf(img image.Image) string {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return "uint16"
	}
	return "uint8"
}

// IsGray reports whether every pixel has equal R, G and B components.
func IsGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != g || g != bl {
				return false
			}
		}
	}
	return true
}

// Describe computes DTypeInfo for an image. Colour images report the range
// over all three channels.
func Describe(img image.Image) *DTypeInfo {
	b := img.Bounds()
	dtype := DTypeOf(img)
	gray := IsGray(img)

	info := &DTypeInfo{DType: dtype}
	if gray {
		info.NDim = 2
		info.Channels = 1
		info.Shape = []int{b.Dy(), b.Dx()}
	} else {
		info.NDim = 3
		info.Channels = 3
		info.Shape = []int{b.Dy(), b.Dx(), 3}
	}

	lo, hi := math.MaxInt, math.MinInt
	visit := func(v uint32) {
		raw := rawValue(v, dtype)
		if raw < lo {
			lo = raw
		}
		if raw > hi {
			hi = raw
		}
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			visit(r)
			if !gray {
				visit(g)
				visit(bl)
			}
		}
	}
	if lo > hi {
		lo, hi = 0, 0
	}

	info.Min, info.Max = lo, hi
	scale := 255.0
	if dtype == "uint16" {
		scale = 65535
	}
	info.FloatMin = float64(lo) / scale
	info.FloatMax = float64(hi) / scale
	info.Int16Min = AsInt16(lo, dtype)
	info.Int16Max = AsInt16(hi, dtype)
	info.UbyteMin = AsUbyte(lo, dtype)
	info.UbyteMax = AsUbyte(hi, dtype)
	return info
}

// rawValue converts a 16-bit RGBA() component back to the native dtype.
func rawValue(v uint32, dtype string) int {
	if dtype == "uint16" {
		return int(v)
	}
	return int(v >> 8)
}

// AsInt16 converts a native unsigned value to int16 range. uint16 values are
// halved (right shift by one) and uint8 values are scaled up by 2^7 plus the
// high bit, so the full unsigned range maps onto [0, 32767].
func AsInt16(v int, dtype string) int {
	if dtype == "uint16" {
		return v >> 1
	}
	return v<<7 | v>>1
}

// AsUbyte converts a native unsigned value to uint8 range.
func AsUbyte(v int, dtype string) int {
	if dtype == "uint16" {
		return v >> 8
	}
	return v
}
