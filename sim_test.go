package orrery

import (
	"math"
	"testing"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSim(t *testing.T) *Simulation {
	t.Helper()
	sim, err := NewSimulation(DefaultConfig(), kitlog.NewNopLogger())
	require.NoError(t, err)
	return sim
}

func addEarth(t *testing.T, sim *Simulation, analytic bool) *CelestialBody {
	t.Helper()
	earth, err := NewBody("earth", "Earth", 5.9722e24, 6.371e6)
	require.NoError(t, err)
	oe, err := NewOrbitalElements(AU, 0.0167, 0, 0, Deg2rad(102.9), 0, 0, 0, SunMass)
	require.NoError(t, err)
	earth.Orbit = oe
	earth.Analytic = analytic
	earth.Position, earth.Velocity, _ = oe.StateAt(0)
	require.NoError(t, sim.AddBody(earth))
	return earth
}

func TestSimulationStateMachine(t *testing.T) {
	sim := newTestSim(t)
	assert.False(t, sim.IsRunning())
	assert.ErrorIs(t, sim.Pause(), ErrNotRunning)
	assert.ErrorIs(t, sim.Resume(), ErrNotRunning)
	assert.ErrorIs(t, sim.Stop(), ErrNotRunning)

	require.NoError(t, sim.Start())
	assert.True(t, sim.IsRunning())
	assert.ErrorIs(t, sim.Start(), ErrAlreadyRunning)
	assert.ErrorIs(t, sim.Resume(), ErrNotPaused)

	require.NoError(t, sim.Pause())
	assert.True(t, sim.IsPaused())
	require.NoError(t, sim.Resume())
	assert.False(t, sim.IsPaused())

	require.NoError(t, sim.Stop())
	assert.False(t, sim.IsRunning())
}

func TestUpdateAccumulator(t *testing.T) {
	sim := newTestSim(t)
	addEarth(t, sim, false)
	sun, err := NewBody("sun", "Sun", SunMass, SunRadius)
	require.NoError(t, err)
	require.NoError(t, sim.AddBody(sun))
	require.NoError(t, sim.Start())
	// One simulated hour per wall second, so 2.5 wall seconds carry two whole
	// steps plus half a step of remainder.
	require.NoError(t, sim.SetSpeed(3600))

	snap, err := sim.Update(2500 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.StepsTaken)
	assert.Less(t, sim.accumulator, sim.timeStep)
	assert.InDelta(t, 1800, sim.accumulator, 1e-6)
	assert.False(t, snap.TimeDesynced)

	// The remainder carries into the next update.
	snap, err = sim.Update(500 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.StepsTaken)
	assert.InDelta(t, 0, sim.accumulator, 1e-6)
	assert.EqualValues(t, 3, snap.TotalSteps)
}

// Repeated 17 ms wall ticks at a million-fold speed: total simulated time is
// exactly the sum of the deltas, split between stepped time and the residual
// below one step, and no tick ever exceeds the step cap.
func TestFixedStepAccounting(t *testing.T) {
	sim := newTestSim(t)
	require.NoError(t, sim.Start())
	require.NoError(t, sim.SetSpeed(1e6))
	t0 := sim.simTime

	const ticks = 200
	var totalSteps uint64
	for i := 0; i < ticks; i++ {
		snap, err := sim.Update(17 * time.Millisecond)
		require.NoError(t, err)
		assert.LessOrEqual(t, snap.StepsTaken, sim.cfg.MaxStepsPerUpdate)
		assert.GreaterOrEqual(t, sim.accumulator, 0.0)
		assert.Less(t, sim.accumulator, sim.timeStep)
		totalSteps += uint64(snap.StepsTaken)
	}
	simulated := float64(ticks) * 0.017 * 1e6
	assert.InDelta(t, simulated, sim.simTime-t0, 1e-6)
	// 17000 simulated seconds per tick never hits the ten-step cap, so no
	// time is dropped: stepped time plus the residual accounts for all of it.
	assert.InDelta(t, simulated, float64(totalSteps)*sim.timeStep+sim.accumulator, 1e-6)
	assert.EqualValues(t, totalSteps, sim.Snapshot().TotalSteps)
	assert.False(t, sim.Snapshot().TimeDesynced)
}

func TestUpdateStepCap(t *testing.T) {
	sim := newTestSim(t)
	addEarth(t, sim, false)
	require.NoError(t, sim.Start())
	require.NoError(t, sim.SetSpeed(3600))

	// A 100 step backlog must be capped, with the excess dropped and flagged.
	snap, err := sim.Update(100 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, sim.cfg.MaxStepsPerUpdate, snap.StepsTaken)
	assert.True(t, snap.TimeDesynced)
	assert.Less(t, sim.accumulator, sim.timeStep)
	// Calendar time keeps the whole delta while physics dropped most of it.
	assert.InDelta(t, 100*3600, sim.simTime-JulianToJ2000(sim.epochJD)*SecondsPerDay, 1e-3)
	assert.Less(t, sim.PhysicsJulianDate(), sim.JulianDate())
}

func TestUpdatePausedHoldsTime(t *testing.T) {
	sim := newTestSim(t)
	require.NoError(t, sim.Start())
	require.NoError(t, sim.Pause())
	before := sim.JulianDate()
	snap, err := sim.Update(5 * time.Second)
	require.NoError(t, err)
	assert.Zero(t, snap.StepsTaken)
	assert.Equal(t, before, sim.JulianDate())
}

func TestSmoothCalendarTime(t *testing.T) {
	sim := newTestSim(t)
	require.NoError(t, sim.Start())
	require.NoError(t, sim.SetSpeed(60))
	before := sim.JulianDate()
	// Half a physics step: no stepping, but display time still advances.
	snap, err := sim.Update(30 * time.Second)
	require.NoError(t, err)
	assert.Zero(t, snap.StepsTaken)
	assert.InDelta(t, 1800.0/SecondsPerDay, sim.JulianDate()-before, 1e-9)
}

func TestResetRestoresBodies(t *testing.T) {
	sim := newTestSim(t)
	earth := addEarth(t, sim, false)
	sun, err := NewBody("sun", "Sun", SunMass, SunRadius)
	require.NoError(t, err)
	require.NoError(t, sim.AddBody(sun))
	start := earth.Position

	require.NoError(t, sim.Start())
	require.NoError(t, sim.SetSpeed(86400*30))
	for i := 0; i < 20; i++ {
		_, err := sim.Update(time.Second)
		require.NoError(t, err)
	}
	require.NotEqual(t, start, earth.Position)

	epoch := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	sim.ResetTo(epoch)
	assert.Equal(t, start, earth.Position)
	assert.Zero(t, sim.accumulator)
	snap := sim.Snapshot()
	assert.Zero(t, snap.TotalSteps)
	assert.False(t, snap.TimeDesynced)
	assert.InDelta(t, DateToJulian(epoch), sim.JulianDate(), 1e-9)
}

func TestSetTimeDesync(t *testing.T) {
	sim := newTestSim(t)
	addEarth(t, sim, false)
	target := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sim.SetTime(target))
	snap := sim.Snapshot()
	assert.True(t, snap.TimeDesynced, "jumping with integrated bodies must flag desync")
	assert.InDelta(t, DateToJulian(target), snap.JulianDate, 1e-9)
	assert.Equal(t, sim.JulianDate(), sim.PhysicsJulianDate())

	assert.ErrorIs(t, sim.SetTime(time.Date(20000, 1, 1, 0, 0, 0, 0, time.UTC)), ErrInvalidDate)
}

func TestSetTimeAnalyticRecomputes(t *testing.T) {
	sim := newTestSim(t)
	earth := addEarth(t, sim, true)
	target := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sim.SetTime(target))
	assert.False(t, sim.Snapshot().TimeDesynced, "closed-form bodies recompute exactly")

	want, _, err := earth.Orbit.StateAt(JulianToJ2000(DateToJulian(target)) * SecondsPerDay)
	require.NoError(t, err)
	assert.Equal(t, want, earth.Position)
}

func TestAnalyticPropagation(t *testing.T) {
	sim := newTestSim(t)
	earth := addEarth(t, sim, true)
	require.NoError(t, sim.Start())
	require.NoError(t, sim.SetSpeed(SecondsPerDay * 10))
	_, err := sim.Update(time.Second)
	require.NoError(t, err)
	want, err := earth.Orbit.PositionAt(sim.simTime)
	require.NoError(t, err)
	assert.Equal(t, want, earth.Position, "analytic body must sit on its rails")
}

func TestAddBodyValidation(t *testing.T) {
	sim := newTestSim(t)
	assert.Error(t, sim.AddBody(nil))
	assert.Error(t, sim.AddBody(&CelestialBody{ID: ""}))
	assert.Error(t, sim.AddBody(&CelestialBody{ID: "x", Mass: -1}))
	assert.Error(t, sim.AddBody(&CelestialBody{ID: "x", Analytic: true}), "analytic body needs elements")

	earth := addEarth(t, sim, false)
	assert.Error(t, sim.AddBody(earth), "duplicate ID")
	assert.Error(t, sim.RemoveBody("nope"))
	require.NoError(t, sim.RemoveBody(earth.ID))
	assert.Empty(t, sim.Bodies())
}

func TestSpeedAndStepBounds(t *testing.T) {
	sim := newTestSim(t)
	assert.Error(t, sim.SetSpeed(0))
	assert.Error(t, sim.SetSpeed(-2))
	assert.Error(t, sim.SetSpeed(math.Inf(1)))
	require.NoError(t, sim.SetSpeed(1e6))
	assert.Equal(t, 1e6, sim.Speed())

	assert.Error(t, sim.SetTimeStep(0))
	require.NoError(t, sim.SetTimeStep(1e9))
	assert.Equal(t, sim.cfg.MaxTimeStep, sim.TimeStep(), "step clamps to the configured maximum")
	require.NoError(t, sim.SetTimeStep(0.01))
	assert.Equal(t, sim.cfg.MinTimeStep, sim.TimeStep())
}

func TestSetIntegrationMethod(t *testing.T) {
	sim := newTestSim(t)
	require.NoError(t, sim.SetIntegrationMethod(Euler))
	assert.Equal(t, Euler, sim.Method())
	assert.Error(t, sim.SetIntegrationMethod(IntegrationMethod(42)))
}

func TestSnapshotRotation(t *testing.T) {
	sim, err := NewSimulation(DefaultConfig(), kitlog.NewNopLogger())
	require.NoError(t, err)
	b, err := NewBody("earth", "Earth", 5.9722e24, 6.371e6)
	require.NoError(t, err)
	b.RotationRate = EarthRotationRate
	require.NoError(t, sim.AddBody(b))
	snap := sim.Snapshot()
	st, ok := snap.Bodies["earth"]
	require.True(t, ok)
	assert.Equal(t, b.RotationAt(sim.simTime), st.Rotation)
	assert.True(t, st.Rotation >= 0 && st.Rotation < 2*math.Pi)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.TimeStep = 0
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.MinTimeStep = 10
	bad.MaxTimeStep = 1
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.MaxStepsPerUpdate = 0
	assert.Error(t, bad.Validate())

	_, err := NewSimulation(bad, kitlog.NewNopLogger())
	assert.Error(t, err)
}

func TestStepForSpeed(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.TimeStep, cfg.StepForSpeed(1))
	assert.Equal(t, cfg.MaxTimeStep, cfg.StepForSpeed(1e9))
	assert.Equal(t, cfg.MinTimeStep, cfg.StepForSpeed(1e-9))
	assert.Equal(t, cfg.StepForSpeed(2), cfg.StepForSpeed(-2), "negative speeds scale by magnitude")
}
