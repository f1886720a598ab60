package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform stored row-major.
// [h0 h1 h2]
// [h3 h4 h5]
// [h6 h7 h8]
type Homography [9]float64

// IdentityHomography returns the identity transform.
func IdentityHomography() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// ScaleHomography returns a transform scaling x by sx and y by sy.
func ScaleHomography(sx, sy float64) Homography {
	return Homography{sx, 0, 0, 0, sy, 0, 0, 0, 1}
}

// Apply maps a point through the transform. The second result is false when
// the point maps to infinity.
func (h Homography) Apply(p Point2D) (Point2D, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 || math.IsNaN(w) {
		return Point2D{}, false
	}
	return Point2D{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// Mul returns h * other, i.e. other is applied first.
func (h Homography) Mul(other Homography) Homography {
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += h[r*3+k] * other[k*3+c]
			}
			out[r*3+c] = sum
		}
	}
	return out
}

// Inverse returns the inverse transform, if it exists.
func (h Homography) Inverse() (Homography, bool) {
	if h.HasNaN() {
		return Homography{}, false
	}
	m := mat.NewDense(3, 3, h[:])
	if math.Abs(mat.Det(m)) < 1e-12 {
		return Homography{}, false
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Homography{}, false
	}
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = inv.At(r, c)
		}
	}
	return out.Normalized(), true
}

// Normalized scales the matrix so that h8 == 1 when h8 is not near zero.
func (h Homography) Normalized() Homography {
	if math.Abs(h[8]) < 1e-12 {
		return h
	}
	s := 1 / h[8]
	for i := range h {
		h[i] *= s
	}
	return h
}

// Rescaled converts a transform estimated between two scaled frames into one
// operating on unscaled coordinates: S_dst^-1 * h * S_src, where src and dst
// are the factors from unscaled to scaled space.
func (h Homography) Rescaled(srcScale, dstScale float64) Homography {
	if srcScale == dstScale && srcScale == 1 {
		return h
	}
	return ScaleHomography(1/dstScale, 1/dstScale).
		Mul(h).
		Mul(ScaleHomography(srcScale, srcScale)).
		Normalized()
}

// Transpose returns the transposed matrix.
func (h Homography) Transpose() Homography {
	return Homography{
		h[0], h[3], h[6],
		h[1], h[4], h[7],
		h[2], h[5], h[8],
	}
}

// ColumnMajor returns the matrix as float32 in column-major order, the layout
// expected by GL-style mat3 uniforms.
func (h Homography) ColumnMajor() [9]float32 {
	t := h.Transpose()
	var out [9]float32
	for i, v := range t {
		out[i] = float32(v)
	}
	return out
}

// HasNaN reports whether any element is NaN or infinite.
func (h Homography) HasNaN() bool {
	for _, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// IsIdentity reports whether h is the identity within tol.
func (h Homography) IsIdentity(tol float64) bool {
	id := IdentityHomography()
	n := h.Normalized()
	for i := range n {
		if math.Abs(n[i]-id[i]) > tol {
			return false
		}
	}
	return true
}

// ApproxEqual compares two transforms after normalisation.
func (h Homography) ApproxEqual(other Homography, tol float64) bool {
	a, b := h.Normalized(), other.Normalized()
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
