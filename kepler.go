package orrery

import (
	"fmt"
	"math"
)

const (
	// keplerTolerance is the Newton-Raphson convergence threshold on ΔE.
	keplerTolerance = 1e-8
	// keplerMaxIterations bounds the solver for eccentricities close to unity.
	keplerMaxIterations = 100
)

// ErrKeplerConvergence is returned when the Kepler solver hits its iteration
// cap. The accompanying eccentric anomaly is the best available estimate.
type ErrKeplerConvergence struct {
	MeanAnomaly, Eccentricity, Residual float64
}

func (e ErrKeplerConvergence) Error() string {
	return fmt.Sprintf("kepler solver did not converge for M=%f e=%f (residual %e)", e.MeanAnomaly, e.Eccentricity, e.Residual)
}

// SolveKepler solves E - e*sin(E) = M for the eccentric anomaly E via
// Newton-Raphson starting from E₀ = M. On non-convergence the best estimate is
// returned along with an ErrKeplerConvergence.
func SolveKepler(M, e float64) (float64, error) {
	M = NormalizeAngle(M)
	E := M
	for iter := 0; iter < keplerMaxIterations; iter++ {
		ΔE := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= ΔE
		if math.Abs(ΔE) < keplerTolerance {
			return E, nil
		}
	}
	return E, ErrKeplerConvergence{M, e, E - e*math.Sin(E) - M}
}

// TrueAnomalyFromEccentric converts the eccentric anomaly to the true anomaly
// via the atan2 half-angle form, which stays stable as e approaches 1.
func TrueAnomalyFromEccentric(E, e float64) float64 {
	sE2, cE2 := math.Sincos(E / 2)
	return NormalizeAngle(2 * math.Atan2(math.Sqrt(1+e)*sE2, math.Sqrt(1-e)*cE2))
}

// EccentricAnomalyFromTrue is the inverse of TrueAnomalyFromEccentric.
func EccentricAnomalyFromTrue(ν, e float64) float64 {
	sν2, cν2 := math.Sincos(ν / 2)
	return NormalizeAngle(2 * math.Atan2(math.Sqrt(1-e)*sν2, math.Sqrt(1+e)*cν2))
}

// MeanAnomalyFromEccentric applies Kepler's equation directly.
func MeanAnomalyFromEccentric(E, e float64) float64 {
	return NormalizeAngle(E - e*math.Sin(E))
}

// PeriodFromSemiMajorAxis returns the orbital period from Kepler's third law,
// for μ = G*centralMass in m³/s².
func PeriodFromSemiMajorAxis(a, μ float64) float64 {
	return 2 * math.Pi * math.Sqrt(math.Pow(a, 3)/μ)
}
