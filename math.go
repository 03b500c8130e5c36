package orrery

import (
	"math"

	"github.com/gonum/floats"
)

const deg2rad = math.Pi / 180

// Vector3 is a double precision Cartesian vector.
type Vector3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vector3) Add(w Vector3) Vector3 {
	return Vector3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vector3) Sub(w Vector3) Vector3 {
	return Vector3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scale returns s*v.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{s * v.X, s * v.Y, s * v.Z}
}

// Dot performs the inner product.
func (v Vector3) Dot(w Vector3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross performs the cross product.
func (v Vector3) Cross(w Vector3) Vector3 {
	return Vector3{v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X}
}

// Norm returns the Euclidean norm.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Unit returns the unit vector. The zero vector is returned unchanged.
func (v Vector3) Unit() Vector3 {
	n := v.Norm()
	if floats.EqualWithinAbs(n, 0, 1e-12) {
		return Vector3{}
	}
	return v.Scale(1 / n)
}

// IsFinite returns whether all three components are finite.
func (v Vector3) IsFinite() bool {
	return !(math.IsNaN(v.X) || math.IsInf(v.X, 0) ||
		math.IsNaN(v.Y) || math.IsInf(v.Y, 0) ||
		math.IsNaN(v.Z) || math.IsInf(v.Z, 0))
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if floats.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// Deg2rad converts degrees to radians, and enforces only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a = math.Mod(a, 360) + 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforces only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a = math.Mod(a, 2*math.Pi) + 2*math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}

// NormalizeAngle wraps the given angle to [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Coserp performs cosine interpolation between a and b.
func Coserp(a, b, t float64) float64 {
	μ := (1 - math.Cos(t*math.Pi)) / 2
	return a*(1-μ) + b*μ
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// MapRange maps x from [inLo, inHi] onto [outLo, outHi].
func MapRange(x, inLo, inHi, outLo, outHi float64) float64 {
	return outLo + (x-inLo)*(outHi-outLo)/(inHi-inLo)
}
