//go:build gocv

package segment

import (
	"encoding/binary"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"photocarve/internal/native"
)

// watershed runs cv::watershed. The colour and marker Mats are released on
// every path.
func watershed(src *image.NRGBA, mk *Markers) error {
	bgr, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return native.New("load watershed image", native.CodeColorConversion, err)
	}
	defer bgr.Close()

	buf := make([]byte, len(mk.Labels)*4)
	for i, v := range mk.Labels {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	markers, err := gocv.NewMatFromBytes(mk.Height, mk.Width, gocv.MatTypeCV32SC1, buf)
	if err != nil {
		return native.New("load markers", native.CodeBuffer, err)
	}
	defer markers.Close()

	gocv.Watershed(bgr, &markers)

	out, err := markers.DataPtrInt32()
	if err != nil {
		return native.New("read markers", native.CodeBuffer, err)
	}
	if len(out) != len(mk.Labels) {
		return native.New("read markers", native.CodeWatershed,
			fmt.Errorf("got %d labels, want %d", len(out), len(mk.Labels)))
	}
	copy(mk.Labels, out)
	return nil
}
