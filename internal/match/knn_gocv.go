//go:build gocv

package match

import (
	"math"
	"runtime"

	"gocv.io/x/gocv"

	"photocarve/internal/features"
)

// knnMatch runs cv::BFMatcher with NORM_HAMMING. Descriptor buffers that
// OpenCV cannot wrap fall back to the pure Go search.
func knnMatch(query, train features.Descriptors, k int) [][]Match {
	q, err := gocv.NewMatFromBytes(query.Rows, query.Cols, gocv.MatTypeCV8UC1, query.Data)
	if err != nil {
		return bruteForceKnn(query, train, k)
	}
	defer q.Close()
	t, err := gocv.NewMatFromBytes(train.Rows, train.Cols, gocv.MatTypeCV8UC1, train.Data)
	if err != nil {
		return bruteForceKnn(query, train, k)
	}
	defer t.Close()

	bf := gocv.NewBFMatcherWithParams(gocv.NormHamming, false)
	defer bf.Close()

	dm := bf.KnnMatch(q, t, k)
	runtime.KeepAlive(query.Data)
	runtime.KeepAlive(train.Data)

	out := make([][]Match, query.Rows)
	for _, row := range dm {
		for _, m := range row {
			if m.QueryIdx < 0 || m.QueryIdx >= query.Rows || m.TrainIdx < 0 || m.TrainIdx >= train.Rows {
				continue
			}
			out[m.QueryIdx] = append(out[m.QueryIdx], Match{
				QueryIdx: m.QueryIdx,
				TrainIdx: m.TrainIdx,
				Distance: int(math.Round(m.Distance)),
			})
		}
	}
	return out
}
