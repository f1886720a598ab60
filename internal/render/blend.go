package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// BlendMode specifies how an image is composited over the ones below it.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDifference
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "normal"
	case BlendMultiply:
		return "multiply"
	case BlendScreen:
		return "screen"
	case BlendOverlay:
		return "overlay"
	case BlendDifference:
		return "difference"
	default:
		return "unknown"
	}
}

// ParseBlendMode converts a mode name.
func ParseBlendMode(s string) (BlendMode, error) {
	for m := BlendNormal; m <= BlendDifference; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown blend mode %q", s)
}

// blend composites src (straight alpha) over dst.
func blend(dst color.RGBA, src color.NRGBA, mode BlendMode, opacity float64) color.RGBA {
	sf := [4]float64{float64(src.R) / 255, float64(src.G) / 255, float64(src.B) / 255, float64(src.A) / 255}
	df := [4]float64{float64(dst.R) / 255, float64(dst.G) / 255, float64(dst.B) / 255, float64(dst.A) / 255}

	var rf [3]float64
	for i := 0; i < 3; i++ {
		switch mode {
		case BlendMultiply:
			rf[i] = sf[i] * df[i]
		case BlendScreen:
			rf[i] = 1 - (1-sf[i])*(1-df[i])
		case BlendOverlay:
			if df[i] < 0.5 {
				rf[i] = 2 * sf[i] * df[i]
			} else {
				rf[i] = 1 - 2*(1-sf[i])*(1-df[i])
			}
		case BlendDifference:
			rf[i] = math.Abs(sf[i] - df[i])
		default:
			rf[i] = sf[i]
		}
	}

	alpha := sf[3] * opacity
	return color.RGBA{
		R: unit8(rf[0]*alpha + df[0]*(1-alpha)),
		G: unit8(rf[1]*alpha + df[1]*(1-alpha)),
		B: unit8(rf[2]*alpha + df[2]*(1-alpha)),
		A: unit8(alpha + df[3]*(1-alpha)),
	}
}

// unit8 maps [0,1] to a byte with rounding.
func unit8(x float64) uint8 {
	return uint8(math.Round(clamp(x, 0, 1) * 255))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
