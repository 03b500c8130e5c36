package orrery

import (
	"fmt"
	"math"
	"strings"

	"github.com/soniakeys/meeus/planetposition"
	"github.com/soniakeys/meeus/pluto"
)

const (
	// SunMass is the solar mass in kg.
	SunMass = 1.989e30
	// SunRadius is the solar radius in meters.
	SunRadius = 6.957e8
)

// planetRecord holds catalog bulk data and J2000 mean elements: a in AU,
// angles in degrees, with ϖ the longitude of perihelion and L the mean
// longitude. vsop is the VSOP87 planet index, -1 when the series does not
// cover the body.
type planetRecord struct {
	name             string
	mass             float64 // kg
	radius           float64 // m
	rotationHours    float64 // sidereal period, negative for retrograde spin
	a, e, i, Ω, ϖ, L float64
	vsop             int
}

var planetCatalog = []planetRecord{
	{"Mercury", 3.3011e23, 2.4397e6, 1407.6, 0.38709927, 0.20563593, 7.00497902, 48.33076593, 77.45779628, 252.25032350, 0},
	{"Venus", 4.8675e24, 6.0518e6, -5832.5, 0.72333566, 0.00677672, 3.39467605, 76.67984255, 131.60246718, 181.97909950, 1},
	{"Earth", 5.9722e24, 6.3781e6, 23.9345, 1.00000261, 0.01671123, 0.00001531, 0, 102.93768193, 100.46457166, 2},
	{"Mars", 6.4171e23, 3.3962e6, 24.6229, 1.52371034, 0.09339410, 1.84969142, 49.55953891, -23.94362959, -4.55343205, 3},
	{"Jupiter", 1.8982e27, 7.1492e7, 9.925, 5.20288700, 0.04838624, 1.30439695, 100.47390909, 14.72847983, 34.39644051, 4},
	{"Saturn", 5.6834e26, 6.0268e7, 10.656, 9.53667594, 0.05386179, 2.48599187, 113.66242448, 92.59887831, 49.95424423, 5},
	{"Uranus", 8.6810e25, 2.5559e7, -17.24, 19.18916464, 0.04725744, 0.77263783, 74.01692503, 170.95427630, 313.23810451, 6},
	{"Neptune", 1.02413e26, 2.4764e7, 16.11, 30.06992276, 0.00859048, 1.77004347, 131.78422574, 44.96476227, -55.12002969, 7},
	{"Pluto", 1.303e22, 1.1883e6, -153.2928, 39.48211675, 0.24882730, 17.14001206, 110.30393684, 224.06891629, 238.92903833, -1},
}

// SolarSystemAt returns the Sun, the eight planets and Pluto with
// heliocentric states at the given Julian date, computed from the built-in
// J2000 mean elements. Every planet carries its element set so callers may
// switch it to closed-form propagation.
func SolarSystemAt(jd float64) ([]*CelestialBody, error) {
	t := JulianToJ2000(jd) * SecondsPerDay
	bodies := make([]*CelestialBody, 0, len(planetCatalog)+1)
	sun, err := NewBody("sun", "Sun", SunMass, SunRadius)
	if err != nil {
		return nil, err
	}
	sun.RotationRate = rotationRate(609.12)
	sun.Group = "star"
	bodies = append(bodies, sun)
	for _, rec := range planetCatalog {
		b, err := rec.bodyAt(t)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

// SolarSystemVSOP87At is SolarSystemAt with planet states taken from the
// VSOP87 series files in dir; Pluto uses the Meeus Pluto theory. Element sets
// still come from the mean-element table.
func SolarSystemVSOP87At(jd float64, dir string) ([]*CelestialBody, error) {
	bodies, err := SolarSystemAt(jd)
	if err != nil {
		return nil, err
	}
	for i, rec := range planetCatalog {
		R, V, err := helioStateVSOP87(rec, jd, dir)
		if err != nil {
			return nil, err
		}
		bodies[i+1].Position, bodies[i+1].Velocity = R, V
	}
	return bodies, nil
}

func (rec planetRecord) bodyAt(t float64) (*CelestialBody, error) {
	b, err := NewBody(strings.ToLower(rec.name), rec.name, rec.mass, rec.radius)
	if err != nil {
		return nil, err
	}
	oe, err := NewOrbitalElements(rec.a*AU, rec.e, Deg2rad(rec.i), Deg2rad(rec.Ω),
		Deg2rad(rec.ϖ-rec.Ω), Deg2rad(rec.L-rec.ϖ), 0, 0, SunMass)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.name, err)
	}
	R, V, err := oe.StateAt(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.name, err)
	}
	b.Orbit = oe
	b.Position, b.Velocity = R, V
	b.RotationRate = rotationRate(rec.rotationHours)
	b.Group = "planets"
	return b, nil
}

// helioStateVSOP87 returns the heliocentric state for the record at jd. The
// series gives the position; the speed comes from vis-viva at that radius
// with the velocity direction taken in the orbit plane.
func helioStateVSOP87(rec planetRecord, jd float64, dir string) (Vector3, Vector3, error) {
	if rec.vsop < 0 {
		l, b, r := pluto.Heliocentric(jd)
		R, V := stateFromLBR(l.Rad(), b.Rad(), r, rec.a)
		return R, V, nil
	}
	planet, err := planetposition.LoadPlanetPath(rec.vsop, dir)
	if err != nil {
		return Vector3{}, Vector3{}, fmt.Errorf("could not load VSOP87 series for %s: %w", rec.name, err)
	}
	l, b, r := planet.Position2000(jd)
	R, V := stateFromLBR(l.Rad(), b.Rad(), r, rec.a)
	return R, V, nil
}

func stateFromLBR(l, b, rAU, aAU float64) (Vector3, Vector3) {
	r := rAU * AU
	sB, cB := math.Sincos(b)
	sL, cL := math.Sincos(l)
	R := Vector3{r * cB * cL, r * cB * sL, r * sB}
	μ := G * SunMass
	v := math.Sqrt(2*μ/r - μ/(aAU*AU))
	vDir := R.Cross(Vector3{0, 0, -1}).Unit()
	return R, vDir.Scale(v)
}

func rotationRate(hours float64) float64 {
	if hours == 0 {
		return 0
	}
	return 2 * math.Pi / (hours * 3600)
}
