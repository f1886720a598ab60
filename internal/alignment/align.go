// Package alignment estimates the projective transform that registers an
// image onto the baseline from matched feature sets.
package alignment

import (
	"errors"
	"fmt"

	"photocarve/internal/features"
	"photocarve/internal/match"
	"photocarve/pkg/geometry"
)

// ErrNoHomography is matched by every Failure.
var ErrNoHomography = errors.New("could not align image onto baseline automatically")

// Failure reports that no valid homography was found for an image. It is
// recoverable: the image is simply left unprojected.
type Failure struct {
	Index  int
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("image %d: %v: %s", f.Index, ErrNoHomography, f.Reason)
}

func (f *Failure) Unwrap() error {
	return ErrNoHomography
}

// Options configures Align.
type Options struct {
	Ratio  float64
	RANSAC RANSACOptions
}

// DefaultOptions returns Options for the given ratio threshold.
func DefaultOptions(ratio float64) Options {
	return Options{Ratio: ratio, RANSAC: DefaultRANSACOptions()}
}

// Result is a successful alignment. Homography maps target detection-frame
// coordinates onto baseline detection-frame coordinates.
type Result struct {
	Homography geometry.Homography
	Matches    int
	Inliers    int
	Error      float64 // mean reprojection error over inliers
	Stats      match.Stats
}

// Align matches target against base and estimates the target-to-baseline
// homography. index is the target's position, used for error reporting.
func Align(base, target *features.Set, index int, opts Options) (*Result, error) {
	if base.Len() == 0 || target.Len() == 0 {
		return nil, &Failure{Index: index, Reason: "no features"}
	}

	knn := match.KnnMatch(base.Descriptors, target.Descriptors, 2)
	good := match.RatioTest(knn, opts.Ratio)
	stats := match.Summarize(knn, good)
	if len(good) < 4 {
		return nil, &Failure{Index: index, Reason: fmt.Sprintf("%d good matches, need 4", len(good))}
	}

	basePts, targetPts := match.Correspondences(base, target, good)
	h, inliers, err := ComputeHomographyRANSAC(targetPts, basePts, opts.RANSAC)
	if err != nil {
		return nil, &Failure{Index: index, Reason: err.Error()}
	}
	if h.HasNaN() {
		return nil, &Failure{Index: index, Reason: "homography contains NaN"}
	}

	inSrc := make([]geometry.Point2D, len(inliers))
	inDst := make([]geometry.Point2D, len(inliers))
	for i, k := range inliers {
		inSrc[i] = targetPts[k]
		inDst[i] = basePts[k]
	}

	return &Result{
		Homography: h,
		Matches:    len(good),
		Inliers:    len(inliers),
		Error:      ReprojectionError(inSrc, inDst, h),
		Stats:      stats,
	}, nil
}
