package orrery

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonum/floats"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	distanceε     = 2e4                          // 20 km
	velocityε     = 1e-3                         // in m/s
)

// ErrUnboundOrbit is returned for states or elements which do not describe a
// bound elliptical orbit.
var ErrUnboundOrbit = errors.New("parabolic and hyperbolic orbits not supported")

// OrbitalElements defines a bound orbit via the six classical elements plus
// the epoch, period and central mass needed for propagation. Angles are in
// radians, distances in meters, times in seconds since J2000.
type OrbitalElements struct {
	SemiMajorAxis float64 // a
	Eccentricity  float64 // e
	Inclination   float64 // i
	Node          float64 // Ω, longitude of the ascending node
	ArgPeriapsis  float64 // ω
	MeanAnomaly0  float64 // M₀, mean anomaly at Epoch
	Period        float64 // T
	Epoch         float64 // seconds since J2000
	CentralMass   float64 // kg
}

// NewOrbitalElements validates and returns a bound elliptical element set.
// Angles are in radians. A zero period is derived from Kepler's third law; a
// non-zero period must agree with it.
func NewOrbitalElements(a, e, i, Ω, ω, M0, period, epoch, centralMass float64) (*OrbitalElements, error) {
	if e < 0 || e >= 1 {
		return nil, fmt.Errorf("eccentricity %f: %w", e, ErrUnboundOrbit)
	}
	if a <= 0 {
		return nil, fmt.Errorf("semi-major axis must be positive, got %f", a)
	}
	if centralMass <= 0 {
		return nil, fmt.Errorf("central mass must be positive, got %f", centralMass)
	}
	kepler3 := PeriodFromSemiMajorAxis(a, G*centralMass)
	if period == 0 {
		period = kepler3
	} else if period < 0 {
		return nil, fmt.Errorf("orbital period must be positive, got %f", period)
	} else if !floats.EqualWithinRel(period, kepler3, 1e-3) {
		return nil, fmt.Errorf("period %f s inconsistent with Kepler's third law (expected %f s)", period, kepler3)
	}
	return &OrbitalElements{a, e, NormalizeAngle(i), NormalizeAngle(Ω), NormalizeAngle(ω),
		NormalizeAngle(M0), period, epoch, centralMass}, nil
}

// GM returns the gravitational parameter μ of the central body in m³/s².
func (o OrbitalElements) GM() float64 {
	return G * o.CentralMass
}

// MeanMotion returns n = 2π/T in rad/s.
func (o OrbitalElements) MeanMotion() float64 {
	return 2 * math.Pi / o.Period
}

// Energyξ returns the specific mechanical energy ξ.
func (o OrbitalElements) Energyξ() float64 {
	return -o.GM() / (2 * o.SemiMajorAxis)
}

// Apoapsis returns the apoapsis distance.
func (o OrbitalElements) Apoapsis() float64 {
	return o.SemiMajorAxis * (1 + o.Eccentricity)
}

// Periapsis returns the periapsis distance.
func (o OrbitalElements) Periapsis() float64 {
	return o.SemiMajorAxis * (1 - o.Eccentricity)
}

// VisViva returns the orbital speed at radius r.
func (o OrbitalElements) VisViva(r float64) float64 {
	return math.Sqrt(o.GM() * (2/r - 1/o.SemiMajorAxis))
}

// MeanAnomalyAt returns the mean anomaly at time t (seconds since J2000).
func (o OrbitalElements) MeanAnomalyAt(t float64) float64 {
	return NormalizeAngle(o.MeanAnomaly0 + 2*math.Pi*(t-o.Epoch)/o.Period)
}

// EccentricAnomalyAt solves Kepler's equation at time t. On non-convergence
// the best estimate is returned along with an ErrKeplerConvergence.
func (o OrbitalElements) EccentricAnomalyAt(t float64) (float64, error) {
	return SolveKepler(o.MeanAnomalyAt(t), o.Eccentricity)
}

// TrueAnomalyAt returns the true anomaly at time t.
func (o OrbitalElements) TrueAnomalyAt(t float64) (float64, error) {
	E, err := o.EccentricAnomalyAt(t)
	return TrueAnomalyFromEccentric(E, o.Eccentricity), err
}

// RadiusAt returns the orbital radius at time t.
func (o OrbitalElements) RadiusAt(t float64) (float64, error) {
	E, err := o.EccentricAnomalyAt(t)
	return o.SemiMajorAxis * (1 - o.Eccentricity*math.Cos(E)), err
}

// StateAt returns the position and velocity at time t in the reference frame.
// A Kepler convergence error is a warning: the state computed from the best
// eccentric anomaly estimate is still returned.
func (o OrbitalElements) StateAt(t float64) (Vector3, Vector3, error) {
	E, err := o.EccentricAnomalyAt(t)
	sinE, cosE := math.Sincos(E)
	e := o.Eccentricity
	ν := TrueAnomalyFromEccentric(E, e)
	r := o.SemiMajorAxis * (1 - e*cosE)
	sinν, cosν := math.Sincos(ν)
	R := Vector3{r * cosν, r * sinν, 0}

	n := o.MeanMotion()
	na := n * o.SemiMajorAxis
	V := Vector3{
		-na * sinE / (1 - e*cosE),
		na * math.Sqrt(1-e*e) * cosE / (1 - e*cosE),
		0,
	}

	R = Rot313(-o.ArgPeriapsis, -o.Inclination, -o.Node, R)
	V = Rot313(-o.ArgPeriapsis, -o.Inclination, -o.Node, V)
	return R, V, err
}

// PositionAt returns the position at time t.
func (o OrbitalElements) PositionAt(t float64) (Vector3, error) {
	R, _, err := o.StateAt(t)
	return R, err
}

// VelocityAt returns the velocity at time t.
func (o OrbitalElements) VelocityAt(t float64) (Vector3, error) {
	_, V, err := o.StateAt(t)
	return V, err
}

// TimeOfFlight returns the time to coast from true anomaly ν1 to ν2, going in
// the direction of motion.
func (o OrbitalElements) TimeOfFlight(ν1, ν2 float64) float64 {
	M1 := MeanAnomalyFromEccentric(EccentricAnomalyFromTrue(ν1, o.Eccentricity), o.Eccentricity)
	M2 := MeanAnomalyFromEccentric(EccentricAnomalyFromTrue(ν2, o.Eccentricity), o.Eccentricity)
	return NormalizeAngle(M2-M1) / (2 * math.Pi) * o.Period
}

// String implements the stringer interface.
func (o OrbitalElements) String() string {
	return fmt.Sprintf("a=%.1f e=%.6f i=%.3f Ω=%.3f ω=%.3f M₀=%.3f T=%.1f",
		o.SemiMajorAxis, o.Eccentricity, Rad2deg(o.Inclination), Rad2deg(o.Node),
		Rad2deg(o.ArgPeriapsis), Rad2deg(o.MeanAnomaly0), o.Period)
}

// Equals returns whether two element sets describe the same orbit within the
// package tolerances.
func (o OrbitalElements) Equals(o1 OrbitalElements) (bool, error) {
	if !floats.EqualWithinAbs(o.CentralMass, o1.CentralMass, o.CentralMass*1e-9) {
		return false, errors.New("different central mass")
	}
	if !floats.EqualWithinAbs(o.SemiMajorAxis, o1.SemiMajorAxis, distanceε) {
		return false, errors.New("semi major axis invalid")
	}
	if !floats.EqualWithinAbs(o.Eccentricity, o1.Eccentricity, eccentricityε) {
		return false, errors.New("eccentricity invalid")
	}
	if !floats.EqualWithinAbs(o.Inclination, o1.Inclination, angleε) {
		return false, errors.New("inclination invalid")
	}
	if !floats.EqualWithinAbs(o.Node, o1.Node, angleε) {
		return false, errors.New("RAAN invalid")
	}
	if o.Eccentricity >= eccentricityε && !floats.EqualWithinAbs(o.ArgPeriapsis, o1.ArgPeriapsis, angleε) {
		return false, errors.New("argument of periapsis invalid")
	}
	return true, nil
}

// clampCos fixes |cos| slightly above 1 from floating point noise, which would
// otherwise turn math.Acos into NaN.
func clampCos(c float64) float64 {
	if abscos := math.Abs(c); abscos > 1 {
		return sign(c)
	}
	return c
}

// ElementsFromState extracts the orbital elements from a Cartesian state
// vector. From Vallado's RV2COE. Degenerate orbits use the documented
// conventions: Ω=0 for equatorial orbits, ω=0 for circular orbits; the true
// anomaly then degrades to the argument of latitude (circular inclined), the
// true longitude (circular equatorial) or is measured from the longitude of
// periapsis (elliptical equatorial).
func ElementsFromState(position, velocity Vector3, centralMass, epoch float64) (*OrbitalElements, error) {
	if centralMass <= 0 {
		return nil, fmt.Errorf("central mass must be positive, got %f", centralMass)
	}
	μ := G * centralMass
	r := position.Norm()
	v := velocity.Norm()
	if r == 0 {
		return nil, errors.New("cannot extract elements from a zero radius vector")
	}
	ξ := v*v/2 - μ/r
	if ξ >= 0 {
		return nil, fmt.Errorf("specific energy %e J/kg: %w", ξ, ErrUnboundOrbit)
	}
	a := -μ / (2 * ξ)
	hVec := position.Cross(velocity)
	h := hVec.Norm()
	if h == 0 {
		return nil, errors.New("cannot extract elements from a rectilinear state")
	}
	eVec := position.Scale(v*v - μ/r).Sub(velocity.Scale(position.Dot(velocity))).Scale(1 / μ)
	e := eVec.Norm()
	if e >= 1 {
		return nil, fmt.Errorf("eccentricity %f: %w", e, ErrUnboundOrbit)
	}
	i := math.Acos(clampCos(hVec.Z / h))
	nVec := Vector3{0, 0, 1}.Cross(hVec)
	n := nVec.Norm()

	circular := e < eccentricityε
	equatorial := i < angleε || n == 0

	var Ω, ω, ν float64
	switch {
	case circular && equatorial:
		ν = math.Acos(clampCos(position.X / r))
		if position.Y < 0 {
			ν = 2*math.Pi - ν
		}
	case circular:
		Ω = math.Acos(clampCos(nVec.X / n))
		if nVec.Y < 0 {
			Ω = 2*math.Pi - Ω
		}
		ν = math.Acos(clampCos(nVec.Dot(position) / (n * r)))
		if position.Z < 0 {
			ν = 2*math.Pi - ν
		}
	case equatorial:
		ω = math.Acos(clampCos(eVec.X / e))
		if eVec.Y < 0 {
			ω = 2*math.Pi - ω
		}
		ν = math.Acos(clampCos(eVec.Dot(position) / (e * r)))
		if position.Dot(velocity) < 0 {
			ν = 2*math.Pi - ν
		}
	default:
		Ω = math.Acos(clampCos(nVec.X / n))
		if nVec.Y < 0 {
			Ω = 2*math.Pi - Ω
		}
		ω = math.Acos(clampCos(nVec.Dot(eVec) / (n * e)))
		if eVec.Z < 0 {
			ω = 2*math.Pi - ω
		}
		ν = math.Acos(clampCos(eVec.Dot(position) / (e * r)))
		if position.Dot(velocity) < 0 {
			ν = 2*math.Pi - ν
		}
	}

	E := EccentricAnomalyFromTrue(ν, e)
	M0 := MeanAnomalyFromEccentric(E, e)
	return &OrbitalElements{a, e, NormalizeAngle(i), NormalizeAngle(Ω), NormalizeAngle(ω),
		M0, PeriodFromSemiMajorAxis(a, μ), epoch, centralMass}, nil
}
