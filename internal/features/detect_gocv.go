//go:build gocv

package features

import (
	"fmt"

	"gocv.io/x/gocv"

	"photocarve/internal/config"
	"photocarve/internal/native"
)

// detect runs the configured detector on the grayscale frame. Every Mat
// allocated here is released before returning.
func detect(frame *Frame, p Params) ([]KeyPoint, Descriptors, error) {
	w, h := frame.Info.Width, frame.Info.Height
	gray, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, frame.Gray.Pix)
	if err != nil {
		return nil, Descriptors{}, native.New("load detection frame", native.CodeBuffer, err)
	}
	defer gray.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	var (
		kps  []gocv.KeyPoint
		desc gocv.Mat
	)
	switch p.Detector {
	case config.DetectorAKAZE:
		akaze := gocv.NewAKAZE()
		defer akaze.Close()
		kps, desc = akaze.DetectAndCompute(gray, mask)
	case config.DetectorORB:
		orb := gocv.NewORBWithParams(p.MaxFeatures, 1.2, 8, p.EdgeThreshold, 0, 2,
			gocv.ORBScoreTypeHarris, p.EdgeThreshold, 20)
		defer orb.Close()
		kps, desc = orb.DetectAndCompute(gray, mask)
	default:
		return nil, Descriptors{}, fmt.Errorf("unknown detector %v", p.Detector)
	}
	defer desc.Close()

	out := make([]KeyPoint, len(kps))
	for i, k := range kps {
		out[i] = KeyPoint{
			X:        k.X,
			Y:        k.Y,
			Size:     k.Size,
			Angle:    k.Angle,
			Response: k.Response,
			Octave:   k.Octave,
		}
	}

	if desc.Empty() {
		if len(out) != 0 {
			return nil, Descriptors{}, native.New("compute descriptors", native.CodeDescriptor,
				fmt.Errorf("%d keypoints without descriptors", len(out)))
		}
		return out, Descriptors{}, nil
	}
	if desc.Type() != gocv.MatTypeCV8UC1 {
		return nil, Descriptors{}, native.New("compute descriptors", native.CodeDescriptor,
			fmt.Errorf("unexpected descriptor type %v", desc.Type()))
	}
	if desc.Rows() != len(out) {
		return nil, Descriptors{}, native.New("compute descriptors", native.CodeDescriptor,
			fmt.Errorf("%d keypoints but %d descriptor rows", len(out), desc.Rows()))
	}

	data := append([]byte(nil), desc.ToBytes()...)
	return out, Descriptors{Rows: desc.Rows(), Cols: desc.Cols(), Data: data}, nil
}
