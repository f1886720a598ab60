//go:build !gocv

package segment

import "image"

func watershed(src *image.NRGBA, mk *Markers) error {
	return Flood(src, mk)
}
