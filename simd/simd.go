// Package simd implements 4-wide double lane operations and 4x4 frame
// composition built from them. Only the scalar path exists; every lane op
// is a plain loop the compiler is free to vectorize.
package simd

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// D4 is a 4-lane double vector.
type D4 [4]float64

func Set4d(x, y, z, w float64) D4 {
	return D4{x, y, z, w}
}

// Loadu4d loads the first four values of an unaligned slice.
func Loadu4d(p []float64) D4 {
	return D4{p[0], p[1], p[2], p[3]}
}

func Zero4d() D4 {
	return D4{}
}

func Get(a D4, lane int) float64 {
	return a[lane]
}

func Add4d(a, b D4) D4 {
	return D4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func Sub4d(a, b D4) D4 {
	return D4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func Mul4d(a, b D4) D4 {
	return D4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// Fmadd4d returns a*b+c with a single rounding per lane.
func Fmadd4d(a, b, c D4) D4 {
	return D4{
		math.FMA(a[0], b[0], c[0]),
		math.FMA(a[1], b[1], c[1]),
		math.FMA(a[2], b[2], c[2]),
		math.FMA(a[3], b[3], c[3]),
	}
}

// Permute4d shuffles lanes: result[k] = a[ik].
func Permute4d(a D4, i0, i1, i2, i3 int) D4 {
	return D4{a[i0], a[i1], a[i2], a[i3]}
}

// Splat4d broadcasts one lane into all four.
func Splat4d(a D4, lane int) D4 {
	v := a[lane]
	return D4{v, v, v, v}
}

// Select4d takes lane k from a when mask[k] is set, from b otherwise.
func Select4d(mask [4]bool, a, b D4) D4 {
	var r D4
	for i := range r {
		if mask[i] {
			r[i] = a[i]
		} else {
			r[i] = b[i]
		}
	}
	return r
}

func (a D4) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{a[0], a[1], a[2]}
}

func (a D4) Vec4() mgl64.Vec4 {
	return mgl64.Vec4(a)
}
