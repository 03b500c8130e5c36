package orrery

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestEquatorialEclipticRoundTrip(t *testing.T) {
	f := NewFrame(J2000)
	v := Vector3{0.5, -0.3, 0.8}
	back := f.EclipticToEquatorial(f.EquatorialToEcliptic(v))
	if !vectorsEqual(v, back, 1e-12) {
		t.Fatalf("round trip fail: %+v != %+v", v, back)
	}
	// A vector along the equinox direction is shared by both frames.
	x := Vector3{1, 0, 0}
	if !vectorsEqual(f.EquatorialToEcliptic(x), x, 1e-12) {
		t.Fatal("equinox direction should be invariant")
	}
	// The celestial pole tilts by the obliquity.
	pole := f.EquatorialToEcliptic(Vector3{0, 0, 1})
	if !floats.EqualWithinAbs(math.Acos(pole.Z), f.Obliquity, 1e-12) {
		t.Fatal("pole should tilt by the obliquity")
	}
}

func TestHorizontalRoundTrip(t *testing.T) {
	f := NewFrame(J2000)
	lat := Deg2rad(40)
	lst := Deg2rad(123.4)
	for ra := 0.3; ra < 2*math.Pi; ra += 0.7 {
		for dec := -1.2; dec <= 1.2; dec += 0.4 {
			alt, az := f.EquatorialToHorizontal(ra, dec, lat, lst)
			if az < 0 || az >= 2*math.Pi {
				t.Fatalf("azimuth not normalized: %f", az)
			}
			ra2, dec2 := f.HorizontalToEquatorial(alt, az, lat, lst)
			if ok, err := anglesEqual(ra, ra2); !ok {
				t.Fatalf("ra=%f dec=%f: %s", ra, dec, err)
			}
			if !floats.EqualWithinAbs(dec, dec2, 1e-9) {
				t.Fatalf("dec %f != %f", dec, dec2)
			}
		}
	}
	// A star on the meridian at the observer latitude sits at the zenith.
	alt, _ := f.EquatorialToHorizontal(lst, lat, lat, lst)
	if !floats.EqualWithinAbs(alt, math.Pi/2, 1e-6) {
		t.Fatalf("zenith altitude %f", alt)
	}
}

func TestRADecUnit(t *testing.T) {
	for ra := 0.1; ra < 2*math.Pi; ra += 0.5 {
		for dec := -1.4; dec <= 1.4; dec += 0.35 {
			ra2, dec2 := UnitToRADec(RADecToUnit(ra, dec))
			if ok, err := anglesEqual(ra, ra2); !ok {
				t.Fatalf("ra: %s", err)
			}
			if !floats.EqualWithinAbs(dec, dec2, 1e-12) {
				t.Fatalf("dec %f != %f", dec, dec2)
			}
		}
	}
	if !floats.EqualWithinAbs(RADecToUnit(1.1, -0.4).Norm(), 1, 1e-12) {
		t.Fatal("RADecToUnit should return a unit vector")
	}
}

func TestHelioGeo(t *testing.T) {
	f := NewFrame(J2000)
	earth := Vector3{AU, 0, 0}
	mars := Vector3{0, 1.52 * AU, 0}
	geo := f.HeliocentricToGeocentric(mars, earth)
	if !vectorsEqual(geo, Vector3{-AU, 1.52 * AU, 0}, 1) {
		t.Fatal("geocentric conversion fail")
	}
	if !vectorsEqual(f.GeocentricToHeliocentric(geo, earth), mars, 1) {
		t.Fatal("heliocentric round trip fail")
	}
}

func TestAngleFacades(t *testing.T) {
	if HoursToDeg(1) != 15 || DegToHours(15) != 1 {
		t.Fatal("hours/deg fail")
	}
	if !floats.EqualWithinAbs(HMSToRad(6, 0, 0), math.Pi/2, 1e-12) {
		t.Fatal("HMS fail")
	}
	h, m, s := RadToHMS(HMSToRad(13, 26, 11.5))
	if h != 13 || m != 26 || !floats.EqualWithinAbs(s, 11.5, 1e-6) {
		t.Fatalf("HMS round trip fail: %f %f %f", h, m, s)
	}
	if !floats.EqualWithinAbs(DMSToRad(-43, 7, 48), -Deg2rad(43.13), 1e-9) {
		t.Fatal("DMS fail")
	}
	d, m, s := RadToDMS(DMSToRad(43, 7, 48))
	if d != 43 || m != 7 || !floats.EqualWithinAbs(s, 48, 1e-6) {
		t.Fatalf("DMS round trip fail: %f %f %f", d, m, s)
	}
}

func TestFrameElementFacades(t *testing.T) {
	f := NewFrame(J2000)
	earthMass := 3.986004418e14 / G
	R := Vector3{6524.834e3, 6862.875e3, 6448.296e3}
	V := Vector3{4901.327, 5533.756, -1976.341}
	oe, err := f.StateToElements(R, V, earthMass)
	if err != nil {
		t.Fatal(err)
	}
	R2, V2, err := f.ElementsToState(oe)
	if err != nil {
		t.Fatal(err)
	}
	if !vectorsEqual(R, R2, R.Norm()*1e-6) {
		t.Fatalf("position round trip fail: %+v != %+v", R, R2)
	}
	if !vectorsEqual(V, V2, V.Norm()*1e-6) {
		t.Fatalf("velocity round trip fail: %+v != %+v", V, V2)
	}
}
