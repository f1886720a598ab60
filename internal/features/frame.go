package features

import (
	"image"

	"golang.org/x/image/draw"
)

// FrameInfo describes the detection frame an image was reduced to.
type FrameInfo struct {
	NativeWidth  int
	NativeHeight int
	Width        int
	Height       int
	Scale        float64 // Width / NativeWidth, never above 1
}

// NewFrameInfo computes the detection frame size for a native image:
// width = min(native, limit), height scaled to keep the aspect ratio.
func NewFrameInfo(nativeW, nativeH, widthLimit int) FrameInfo {
	w := nativeW
	if widthLimit > 0 && w > widthLimit {
		w = widthLimit
	}
	h := int(float64(nativeH) * float64(w) / float64(nativeW))
	if h < 1 {
		h = 1
	}
	return FrameInfo{
		NativeWidth:  nativeW,
		NativeHeight: nativeH,
		Width:        w,
		Height:       h,
		Scale:        float64(w) / float64(nativeW),
	}
}

// Frame is a grayscale detection frame. It only lives for one extraction call.
type Frame struct {
	Info FrameInfo
	Gray *image.Gray
}

// NewFrame downscales src to the width limit and converts it to grayscale.
func NewFrame(src image.Image, widthLimit int) *Frame {
	b := src.Bounds()
	info := NewFrameInfo(b.Dx(), b.Dy(), widthLimit)

	gray := image.NewGray(image.Rect(0, 0, info.Width, info.Height))
	if info.Width == b.Dx() && info.Height == b.Dy() {
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(gray, gray.Bounds(), src, b, draw.Src, nil)
	}
	return &Frame{Info: info, Gray: gray}
}
