//go:build !gocv

package match

import "photocarve/internal/features"

func knnMatch(query, train features.Descriptors, k int) [][]Match {
	return bruteForceKnn(query, train, k)
}
