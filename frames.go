package orrery

import (
	"math"
)

// AU is one astronomical unit in meters.
const AU = 1.495978707e11

// Frame holds the configuration shared by all coordinate conversions: the
// reference epoch, the obliquity of the ecliptic at that epoch, and the AU
// scale. Conversions themselves are pure given this configuration.
type Frame struct {
	Epoch     float64 // Julian date
	Obliquity float64 // radians
	AU        float64 // meters
}

// NewFrame returns a frame configured for the given Julian date, using the
// nutation-corrected obliquity.
func NewFrame(jd float64) Frame {
	return Frame{Epoch: jd, Obliquity: TrueObliquity(jd), AU: AU}
}

// EquatorialToEcliptic rotates an equatorial vector into the ecliptic frame.
func (f Frame) EquatorialToEcliptic(v Vector3) Vector3 {
	return MxV33(R1(f.Obliquity), v)
}

// EclipticToEquatorial rotates an ecliptic vector into the equatorial frame.
func (f Frame) EclipticToEquatorial(v Vector3) Vector3 {
	return MxV33(R1(-f.Obliquity), v)
}

// HeliocentricToGeocentric re-centers a heliocentric vector on the Earth,
// given Earth's heliocentric position in the same frame.
func (f Frame) HeliocentricToGeocentric(v, earth Vector3) Vector3 {
	return v.Sub(earth)
}

// GeocentricToHeliocentric re-centers a geocentric vector on the Sun.
func (f Frame) GeocentricToHeliocentric(v, earth Vector3) Vector3 {
	return v.Add(earth)
}

// EquatorialToHorizontal converts right ascension and declination to altitude
// and azimuth for an observer at geographic latitude lat and local sidereal
// time lst (all radians). Azimuth follows the astronomical convention,
// measured from north through east.
func (f Frame) EquatorialToHorizontal(ra, dec, lat, lst float64) (alt, az float64) {
	H := lst - ra
	sinφ, cosφ := math.Sincos(lat)
	sinδ, cosδ := math.Sincos(dec)
	sinH, cosH := math.Sincos(H)
	alt = math.Asin(sinφ*sinδ + cosφ*cosδ*cosH)
	// atan2 form yields azimuth from south, hence the +π wrap.
	az = NormalizeAngle(math.Atan2(sinH, cosH*sinφ-(sinδ/cosδ)*cosφ) + math.Pi)
	return
}

// HorizontalToEquatorial is the inverse of EquatorialToHorizontal.
func (f Frame) HorizontalToEquatorial(alt, az, lat, lst float64) (ra, dec float64) {
	A := az - math.Pi
	sinφ, cosφ := math.Sincos(lat)
	sinAlt, cosAlt := math.Sincos(alt)
	sinA, cosA := math.Sincos(A)
	dec = math.Asin(sinφ*sinAlt - cosφ*cosAlt*cosA)
	H := math.Atan2(sinA, cosA*sinφ+(sinAlt/cosAlt)*cosφ)
	ra = NormalizeAngle(lst - H)
	return
}

// RADecToUnit returns the unit vector pointing at the given right ascension
// and declination (radians).
func RADecToUnit(ra, dec float64) Vector3 {
	sinα, cosα := math.Sincos(ra)
	sinδ, cosδ := math.Sincos(dec)
	return Vector3{cosδ * cosα, cosδ * sinα, sinδ}
}

// UnitToRADec returns the right ascension and declination of the given
// direction vector, which need not be normalized.
func UnitToRADec(v Vector3) (ra, dec float64) {
	u := v.Unit()
	ra = NormalizeAngle(math.Atan2(u.Y, u.X))
	dec = math.Asin(u.Z)
	return
}

// StateToElements extracts Keplerian elements from a Cartesian state. Facade
// over ElementsFromState, kept so frame users need not reach into the orbit
// model directly.
func (f Frame) StateToElements(position, velocity Vector3, centralMass float64) (*OrbitalElements, error) {
	return ElementsFromState(position, velocity, centralMass, JulianToJ2000(f.Epoch)*SecondsPerDay)
}

// ElementsToState is the inverse facade of StateToElements, evaluated at the
// element epoch.
func (f Frame) ElementsToState(oe *OrbitalElements) (Vector3, Vector3, error) {
	return oe.StateAt(oe.Epoch)
}

/* Angle unit facades. */

// DegToHours converts degrees to hours of right ascension.
func DegToHours(d float64) float64 { return d / 15 }

// HoursToDeg converts hours of right ascension to degrees.
func HoursToDeg(h float64) float64 { return h * 15 }

// HMSToRad converts hours, minutes and seconds of right ascension to radians.
func HMSToRad(h, m, s float64) float64 {
	return Deg2rad(HoursToDeg(h + m/60 + s/3600))
}

// RadToHMS converts an angle in radians to hours, minutes and seconds.
func RadToHMS(a float64) (h, m, s float64) {
	hours := DegToHours(Rad2deg(a))
	h = math.Floor(hours)
	m = math.Floor((hours - h) * 60)
	s = ((hours-h)*60 - m) * 60
	return
}

// DMSToRad converts degrees, arcminutes and arcseconds to radians. The sign of
// the degree component governs the whole angle.
func DMSToRad(d, m, s float64) float64 {
	a := (math.Abs(d) + m/60 + s/3600) * deg2rad
	if d < 0 {
		return -a
	}
	return a
}

// RadToDMS converts an angle in radians to degrees, arcminutes and arcseconds.
func RadToDMS(a float64) (d, m, s float64) {
	neg := a < 0
	deg := math.Abs(a) / deg2rad
	d = math.Floor(deg)
	m = math.Floor((deg - d) * 60)
	s = ((deg-d)*60 - m) * 60
	if neg {
		d = -d
	}
	return
}
