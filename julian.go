package orrery

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/julian"
)

const (
	// J2000 is the Julian date of the J2000.0 epoch (2000-01-01 12:00:00 TT).
	J2000 = 2451545.0
	// JulianCentury is the number of days in a Julian century.
	JulianCentury = 36525.0
	// SecondsPerDay is the number of SI seconds in a Julian day.
	SecondsPerDay = 86400.0
	// EarthRotationRate is the average Earth rotation rate in radians per second.
	EarthRotationRate = 7.2921158553e-5
)

// DateToJulian converts a calendar date to a Julian date.
func DateToJulian(dt time.Time) float64 {
	return julian.TimeToJD(dt.UTC())
}

// JulianToDate converts a Julian date to a calendar date in UTC. Exact inverse
// of DateToJulian to within sub-millisecond rounding.
func JulianToDate(jd float64) time.Time {
	return julian.JDToTime(jd).UTC()
}

// JulianToJ2000 returns the number of days since the J2000.0 epoch.
func JulianToJ2000(jd float64) float64 {
	return jd - J2000
}

// J2000ToJulian converts days since J2000.0 back to a Julian date.
func J2000ToJulian(days float64) float64 {
	return days + J2000
}

// GMST returns the Greenwich mean sidereal time in radians, normalized to
// [0, 2π), from the polynomial in Julian centuries since J2000.
func GMST(jd float64) float64 {
	d := JulianToJ2000(jd)
	T := d / JulianCentury
	θ := 280.46061837 + 360.98564736629*d + 0.000387933*T*T - T*T*T/38710000
	return NormalizeAngle(θ * deg2rad)
}

// LST returns the local mean sidereal time in radians for an observer at the
// given east longitude (radians).
func LST(jd, longitude float64) float64 {
	return NormalizeAngle(GMST(jd) + longitude)
}

// Nutation returns the nutation in longitude Δψ and in obliquity Δε, both in
// radians, from a two-term trigonometric series. This is a visualization-grade
// approximation, not the full IAU model.
func Nutation(jd float64) (Δψ, Δε float64) {
	T := JulianToJ2000(jd) / JulianCentury
	// Longitude of the ascending node of the Moon and mean longitude of the Sun.
	Ω := Deg2rad(125.04452 - 1934.136261*T)
	L := Deg2rad(280.4665 + 36000.7698*T)
	const arcsec = deg2rad / 3600
	Δψ = (-17.20*math.Sin(Ω) - 1.32*math.Sin(2*L)) * arcsec
	Δε = (9.20*math.Cos(Ω) + 0.57*math.Cos(2*L)) * arcsec
	return
}

// MeanObliquity returns the mean obliquity of the ecliptic in radians.
func MeanObliquity(jd float64) float64 {
	T := JulianToJ2000(jd) / JulianCentury
	return Deg2rad(23.43929111 - 0.01300417*T - 1.638889e-7*T*T)
}

// TrueObliquity returns the mean obliquity corrected for nutation, in radians.
func TrueObliquity(jd float64) float64 {
	_, Δε := Nutation(jd)
	return MeanObliquity(jd) + Δε
}

// IsValidSimulationDate bounds the calendar year to [-10000, 10000].
func IsValidSimulationDate(dt time.Time) bool {
	year := dt.Year()
	return year >= -10000 && year <= 10000
}
