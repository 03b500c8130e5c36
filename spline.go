package orrery

import (
	"fmt"
)

// BSpline is a degree-p B-spline over 3D control points with a uniform
// clamped knot vector, evaluated on [0, 1]. Used to smooth sampled orbit
// paths before handing them to consumers.
type BSpline struct {
	ctrl   []Vector3
	degree int
	knots  []float64
}

// NewBSpline returns a B-spline of the given degree. At least degree+1
// control points are required.
func NewBSpline(ctrl []Vector3, degree int) (*BSpline, error) {
	if degree < 1 {
		return nil, fmt.Errorf("spline degree must be at least 1, got %d", degree)
	}
	if len(ctrl) < degree+1 {
		return nil, fmt.Errorf("degree %d spline needs at least %d control points, got %d", degree, degree+1, len(ctrl))
	}
	n := len(ctrl)
	spans := n - degree
	knots := make([]float64, n+degree+1)
	for i := range knots {
		switch {
		case i <= degree:
			knots[i] = 0
		case i >= n:
			knots[i] = 1
		default:
			knots[i] = float64(i-degree) / float64(spans)
		}
	}
	return &BSpline{ctrl: ctrl, degree: degree, knots: knots}, nil
}

// At evaluates the spline at t, clamped to [0, 1].
func (s *BSpline) At(t float64) Vector3 {
	t = Clamp(t, 0, 1)
	if t == 1 {
		// The half-open basis spans would all evaluate to zero here.
		return s.ctrl[len(s.ctrl)-1]
	}
	var p Vector3
	for i := range s.ctrl {
		if b := s.basis(i, s.degree, t); b != 0 {
			p = p.Add(s.ctrl[i].Scale(b))
		}
	}
	return p
}

// Sample evaluates the spline at count points uniformly spaced on [0, 1].
func (s *BSpline) Sample(count int) []Vector3 {
	if count < 2 {
		count = 2
	}
	out := make([]Vector3, count)
	for i := range out {
		out[i] = s.At(float64(i) / float64(count-1))
	}
	return out
}

// basis is the Cox-de Boor recursion N_{i,p}(t), with the 0/0 = 0 convention.
func (s *BSpline) basis(i, p int, t float64) float64 {
	if p == 0 {
		if s.knots[i] <= t && t < s.knots[i+1] {
			return 1
		}
		return 0
	}
	var left, right float64
	if d := s.knots[i+p] - s.knots[i]; d > 0 {
		left = (t - s.knots[i]) / d * s.basis(i, p-1, t)
	}
	if d := s.knots[i+p+1] - s.knots[i+1]; d > 0 {
		right = (s.knots[i+p+1] - t) / d * s.basis(i+1, p-1, t)
	}
	return left + right
}
