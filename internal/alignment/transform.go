package alignment

import (
	"fmt"
	"math"
	"math/rand"

	"photocarve/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// RANSACOptions tunes homography estimation.
type RANSACOptions struct {
	Threshold     float64 // reprojection error in pixels
	Confidence    float64
	MaxIterations int
	Seed          int64
}

// DefaultRANSACOptions matches the usual OpenCV findHomography settings.
func DefaultRANSACOptions() RANSACOptions {
	return RANSACOptions{
		Threshold:     3.0,
		Confidence:    0.995,
		MaxIterations: 2000,
		Seed:          1,
	}
}

// ComputeHomographyRANSAC estimates the homography mapping src onto dst with
// RANSAC over 4-point samples, then refits on all inliers. It returns the
// transform and the inlier indices.
func ComputeHomographyRANSAC(src, dst []geometry.Point2D, opts RANSACOptions) (geometry.Homography, []int, error) {
	if len(src) != len(dst) {
		return geometry.Homography{}, nil, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	if n < 4 {
		return geometry.Homography{}, nil, fmt.Errorf("need at least 4 points, got %d", n)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	maxIter := opts.MaxIterations
	var (
		bestInliers []int
		bestH       geometry.Homography
	)

	sample := make([]geometry.Point2D, 4)
	target := make([]geometry.Point2D, 4)
	for iter := 0; iter < maxIter; iter++ {
		for i, k := range rng.Perm(n)[:4] {
			sample[i] = src[k]
			target[i] = dst[k]
		}
		if degenerate(sample) || degenerate(target) {
			continue
		}

		h, err := computeHomographyDLT(sample, target)
		if err != nil {
			continue
		}

		inliers := collectInliers(h, src, dst, opts.Threshold)
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestH = h
			maxIter = min(maxIter, adaptiveIterations(len(inliers), n, opts.Confidence))
		}
	}

	if len(bestInliers) < 4 {
		return geometry.Homography{}, nil, fmt.Errorf("RANSAC found no consensus (%d inliers)", len(bestInliers))
	}

	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, k := range bestInliers {
		inlierSrc[i] = src[k]
		inlierDst[i] = dst[k]
	}

	final, err := computeHomographyDLT(inlierSrc, inlierDst)
	if err != nil || final.HasNaN() {
		return bestH, bestInliers, nil
	}
	if refit := collectInliers(final, src, dst, opts.Threshold); len(refit) >= len(bestInliers) {
		return final, refit, nil
	}
	return bestH, bestInliers, nil
}

// degenerate reports whether any three of the four points are nearly collinear.
func degenerate(p []geometry.Point2D) bool {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			for k := j + 1; k < 4; k++ {
				if math.Abs(geometry.Cross(p[i], p[j], p[k])) < 1e-6 {
					return true
				}
			}
		}
	}
	return false
}

func collectInliers(h geometry.Homography, src, dst []geometry.Point2D, threshold float64) []int {
	var inliers []int
	for i := range src {
		p, ok := h.Apply(src[i])
		if ok && p.Distance(dst[i]) <= threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

func adaptiveIterations(inliers, n int, confidence float64) int {
	w := float64(inliers) / float64(n)
	denom := math.Log(1 - math.Pow(w, 4))
	if denom >= 0 || math.IsNaN(denom) {
		return math.MaxInt32
	}
	if w >= 1 || math.IsInf(denom, -1) {
		return 1
	}
	return int(math.Min(math.Ceil(math.Log(1-confidence)/denom), math.MaxInt32))
}

// normalization returns the similarity moving the centroid of pts to the
// origin with a mean distance of sqrt(2).
func normalization(pts []geometry.Point2D) geometry.Homography {
	c := geometry.Centroid(pts)
	var mean float64
	for _, p := range pts {
		mean += p.Distance(c)
	}
	mean /= float64(len(pts))
	s := 1.0
	if mean > 1e-12 {
		s = math.Sqrt2 / mean
	}
	return geometry.Homography{s, 0, -s * c.X, 0, s, -s * c.Y, 0, 0, 1}
}

// computeHomographyDLT solves for the homography with the normalised direct
// linear transform. Four points give an exact fit; more give a least-squares fit.
func computeHomographyDLT(src, dst []geometry.Point2D) (geometry.Homography, error) {
	n := len(src)
	if n < 4 || n != len(dst) {
		return geometry.Homography{}, fmt.Errorf("need at least 4 point pairs")
	}

	ts := normalization(src)
	td := normalization(dst)

	A := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		s, _ := ts.Apply(src[i])
		d, _ := td.Apply(dst[i])
		x, y, u, v := s.X, s.Y, d.X, d.Y

		A.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		A.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDFull) {
		return geometry.Homography{}, fmt.Errorf("SVD failed")
	}
	var V mat.Dense
	svd.VTo(&V)

	var hn geometry.Homography
	for i := 0; i < 9; i++ {
		hn[i] = V.At(i, 8)
	}

	tdInv, ok := td.Inverse()
	if !ok {
		return geometry.Homography{}, fmt.Errorf("degenerate normalisation")
	}
	h := tdInv.Mul(hn).Mul(ts)
	if math.Abs(h[8]) < 1e-12 {
		return geometry.Homography{}, fmt.Errorf("homography at infinity")
	}
	h = h.Normalized()
	if h.HasNaN() {
		return geometry.Homography{}, fmt.Errorf("homography contains NaN")
	}
	return h, nil
}

// ReprojectionError returns the mean distance between h(src) and dst.
func ReprojectionError(src, dst []geometry.Point2D, h geometry.Homography) float64 {
	if len(src) != len(dst) || len(src) == 0 {
		return math.Inf(1)
	}
	var total float64
	for i := range src {
		p, ok := h.Apply(src[i])
		if !ok {
			return math.Inf(1)
		}
		total += p.Distance(dst[i])
	}
	return total / float64(len(src))
}
