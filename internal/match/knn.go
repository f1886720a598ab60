// Package match pairs binary descriptors between two feature sets.
package match

import (
	"math"
	"math/bits"

	"photocarve/internal/features"
	"photocarve/pkg/geometry"
)

// Match pairs a query descriptor with a train descriptor.
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance int // Hamming distance in bits
}

// Hamming returns the number of differing bits between a and b. Rows of
// different length compare over the shorter one.
func Hamming(a, b []byte) int {
	n := min(len(a), len(b))
	d := 0
	i := 0
	for ; i+8 <= n; i += 8 {
		x := uint64(a[i]) | uint64(a[i+1])<<8 | uint64(a[i+2])<<16 | uint64(a[i+3])<<24 |
			uint64(a[i+4])<<32 | uint64(a[i+5])<<40 | uint64(a[i+6])<<48 | uint64(a[i+7])<<56
		y := uint64(b[i]) | uint64(b[i+1])<<8 | uint64(b[i+2])<<16 | uint64(b[i+3])<<24 |
			uint64(b[i+4])<<32 | uint64(b[i+5])<<40 | uint64(b[i+6])<<48 | uint64(b[i+7])<<56
		d += bits.OnesCount64(x ^ y)
	}
	for ; i < n; i++ {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d
}

// KnnMatch returns, for every query row, its k nearest train rows ordered by
// distance. Queries get fewer than k neighbours when train has fewer than k
// rows. With the gocv build tag the search runs in OpenCV's brute-force
// Hamming matcher.
func KnnMatch(query, train features.Descriptors, k int) [][]Match {
	if k <= 0 || query.Rows == 0 || train.Rows == 0 {
		return make([][]Match, query.Rows)
	}
	return knnMatch(query, train, k)
}

// bruteForceKnn is the pure Go search. Ties keep the lower train index first.
func bruteForceKnn(query, train features.Descriptors, k int) [][]Match {
	out := make([][]Match, query.Rows)
	for q := 0; q < query.Rows; q++ {
		qrow := query.Row(q)
		best := make([]Match, 0, k)
		for t := 0; t < train.Rows; t++ {
			m := Match{QueryIdx: q, TrainIdx: t, Distance: Hamming(qrow, train.Row(t))}
			best = insertNearest(best, m, k)
		}
		out[q] = best
	}
	return out
}

func insertNearest(best []Match, m Match, k int) []Match {
	pos := len(best)
	for pos > 0 && best[pos-1].Distance > m.Distance {
		pos--
	}
	if pos >= k {
		return best
	}
	if len(best) < k {
		best = append(best, Match{})
	}
	copy(best[pos+1:], best[pos:len(best)-1])
	best[pos] = m
	return best
}

// RatioTest keeps the best match of each query whose distance is at most
// ratio times the distance of its second-best match. Queries with fewer than
// two neighbours are dropped.
func RatioTest(knn [][]Match, ratio float64) []Match {
	var good []Match
	for _, nn := range knn {
		if len(nn) < 2 {
			continue
		}
		if float64(nn[0].Distance) <= ratio*float64(nn[1].Distance) {
			good = append(good, nn[0])
		}
	}
	return good
}

// Correspondences returns the matched positions: src from the query set and
// dst from the train set, index-aligned.
func Correspondences(query, train *features.Set, matches []Match) (src, dst []geometry.Point2D) {
	src = make([]geometry.Point2D, 0, len(matches))
	dst = make([]geometry.Point2D, 0, len(matches))
	for _, m := range matches {
		src = append(src, query.KeyPoints[m.QueryIdx].Point())
		dst = append(dst, train.KeyPoints[m.TrainIdx].Point())
	}
	return src, dst
}

// Stats summarises a matching run for diagnostics.
type Stats struct {
	Queries      int
	WithPair     int // queries that had two neighbours
	Good         int // survivors of the ratio test
	MeanDistance float64
}

// Summarize computes Stats for a knn result and its ratio-test survivors.
func Summarize(knn [][]Match, good []Match) Stats {
	s := Stats{Queries: len(knn), Good: len(good)}
	for _, nn := range knn {
		if len(nn) >= 2 {
			s.WithPair++
		}
	}
	if len(good) > 0 {
		var sum float64
		for _, m := range good {
			sum += float64(m.Distance)
		}
		s.MeanDistance = sum / float64(len(good))
	} else {
		s.MeanDistance = math.NaN()
	}
	return s
}
