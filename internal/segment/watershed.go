package segment

import (
	"fmt"
	"image"
)

// inQueue marks pixels waiting in the flood queue.
const inQueue int32 = -2

// bucketQueue is a 256-level FIFO priority queue of pixel offsets.
type bucketQueue struct {
	buckets [256][]int
	active  int
}

func (q *bucketQueue) push(prio uint8, ofs int) {
	q.buckets[prio] = append(q.buckets[prio], ofs)
	if int(prio) < q.active {
		q.active = int(prio)
	}
}

func (q *bucketQueue) pop() (int, bool) {
	for q.active < len(q.buckets) {
		b := q.buckets[q.active]
		if len(b) > 0 {
			ofs := b[0]
			q.buckets[q.active] = b[1:]
			return ofs, true
		}
		q.buckets[q.active] = nil
		q.active++
	}
	return 0, false
}

func colourDiff(p, r []uint8) uint8 {
	d := absDiff(p[0], r[0])
	d = max(d, absDiff(p[1], r[1]))
	return max(d, absDiff(p[2], r[2]))
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// Flood runs marker-based watershed on src in place of mk, following the
// OpenCV algorithm: pixels are flooded from the seeds in order of the maximum
// per-channel colour difference to an already labelled neighbour, pixels where
// two labels meet become Boundary, and so does the one-pixel image border.
func Flood(src *image.NRGBA, mk *Markers) error {
	w, h := mk.Width, mk.Height
	if src.Bounds().Dx() != w || src.Bounds().Dy() != h {
		return fmt.Errorf("image %v does not match markers %dx%d", src.Bounds().Size(), w, h)
	}
	if w < 3 || h < 3 {
		for i := range mk.Labels {
			mk.Labels[i] = Boundary
		}
		return nil
	}

	pix := func(i int) []uint8 {
		x, y := i%w, i/w
		o := src.PixOffset(src.Rect.Min.X+x, src.Rect.Min.Y+y)
		return src.Pix[o : o+4]
	}
	lab := mk.Labels

	for x := 0; x < w; x++ {
		lab[x] = Boundary
		lab[(h-1)*w+x] = Boundary
	}
	for y := 0; y < h; y++ {
		lab[y*w] = Boundary
		lab[y*w+w-1] = Boundary
	}

	neighbours := [4]int{-1, 1, -w, w}
	q := &bucketQueue{active: 256}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			if lab[i] != Unknown {
				continue
			}
			best := -1
			for _, d := range neighbours {
				if lab[i+d] > 0 {
					if diff := int(colourDiff(pix(i), pix(i+d))); best < 0 || diff < best {
						best = diff
					}
				}
			}
			if best >= 0 {
				q.push(uint8(best), i)
				lab[i] = inQueue
			}
		}
	}

	for {
		i, ok := q.pop()
		if !ok {
			break
		}

		label := Unknown
		for _, d := range neighbours {
			t := lab[i+d]
			if t > 0 {
				if label == Unknown {
					label = t
				} else if t != label {
					label = Boundary
				}
			}
		}
		if label == Unknown {
			return fmt.Errorf("watershed: queued pixel %d has no labelled neighbour", i)
		}
		lab[i] = label
		if label == Boundary {
			continue
		}

		for _, d := range neighbours {
			j := i + d
			if lab[j] == Unknown {
				q.push(colourDiff(pix(i), pix(j)), j)
				lab[j] = inQueue
			}
		}
	}
	return nil
}
