//go:build !gocv

package features

import "photocarve/internal/native"

func detect(*Frame, Params) ([]KeyPoint, Descriptors, error) {
	return nil, Descriptors{}, native.ErrUnavailable
}
