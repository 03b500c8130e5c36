package orrery

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	kitlog "github.com/go-kit/kit/log"
)

// Control errors surfaced by the simulation state machine.
var (
	ErrAlreadyRunning = errors.New("simulation is already running")
	ErrNotRunning     = errors.New("simulation is not running")
	ErrNotPaused      = errors.New("simulation is not paused")
	ErrInvalidDate    = errors.New("date outside the supported year range [-10000, 10000]")
)

// BodyState is the per-body egress record.
type BodyState struct {
	ID       string
	Position Vector3
	Velocity Vector3
	Rotation float64 // accumulated spin angle in rad, zero when unknown
}

// Snapshot is the read-only per-tick egress handed to render and UI layers.
// Its contents are valid until the next tick.
type Snapshot struct {
	JulianDate   float64
	Time         time.Time
	StepsTaken   int    // physics steps consumed by this tick
	TotalSteps   uint64 // physics steps since the last reset
	StepWall     time.Duration
	TimeDesynced bool
	Bodies       map[string]BodyState
}

// Simulation owns the body set and the fixed-timestep clock driving the
// N-body integrator and the closed-form propagators. All state lives here;
// there is no package-level mutable state. Not safe for concurrent use: a
// tick must complete before bodies are read or mutated externally.
type Simulation struct {
	cfg    Config
	sys    *System
	index  map[string]*CelestialBody
	logger kitlog.Logger

	running bool
	paused  bool

	speed       float64 // simulation seconds per wall second
	timeStep    float64 // fixed physics step, simulation seconds
	accumulator float64 // carry-over below one whole step

	epochJD  float64 // Julian date at the last reset
	simTime  float64 // smooth simulation time, seconds since J2000
	physTime float64 // stepped physics time, seconds since J2000

	timeDesynced bool

	totalSteps   uint64
	lastStepWall time.Duration
	lastTick     time.Time
}

// NewSimulation returns a simulation context with no bodies, clocked at the
// current wall time. A nil logger gets a logfmt logger on stdout.
func NewSimulation(cfg Config, logger kitlog.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	}
	s := &Simulation{
		cfg:      cfg,
		sys:      NewSystem(cfg.Method, cfg.Workers, cfg.ParallelThreshold),
		index:    make(map[string]*CelestialBody),
		logger:   kitlog.With(logger, "subsys", "sim"),
		speed:    1,
		timeStep: cfg.TimeStep,
	}
	s.setClock(time.Now().UTC())
	return s, nil
}

func (s *Simulation) setClock(dt time.Time) {
	s.epochJD = DateToJulian(dt)
	s.simTime = JulianToJ2000(s.epochJD) * SecondsPerDay
	s.physTime = s.simTime
}

/* Ingest. */

// AddBody registers a body and snapshots its initial state for reset.
func (s *Simulation) AddBody(b *CelestialBody) error {
	if b == nil {
		return errors.New("cannot add a nil body")
	}
	if b.ID == "" {
		return errors.New("body must have a non-empty ID")
	}
	if b.Mass < 0 {
		return fmt.Errorf("body %s: mass must be non-negative, got %e", b.ID, b.Mass)
	}
	if _, ok := s.index[b.ID]; ok {
		return fmt.Errorf("body %s already exists", b.ID)
	}
	if b.Analytic && b.Orbit == nil {
		return fmt.Errorf("body %s: analytic propagation requires orbital elements", b.ID)
	}
	b.snapshotInitialState()
	s.index[b.ID] = b
	s.sys.Bodies = append(s.sys.Bodies, b)
	return nil
}

// RemoveBody destroys the body with the given ID.
func (s *Simulation) RemoveBody(id string) error {
	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("no body with ID %s", id)
	}
	delete(s.index, id)
	for i, b := range s.sys.Bodies {
		if b.ID == id {
			s.sys.Bodies = append(s.sys.Bodies[:i], s.sys.Bodies[i+1:]...)
			break
		}
	}
	return nil
}

// Body returns the body with the given ID. Mutating it while a tick is in
// progress is not supported.
func (s *Simulation) Body(id string) (*CelestialBody, bool) {
	b, ok := s.index[id]
	return b, ok
}

// Bodies returns the ordered body set.
func (s *Simulation) Bodies() []*CelestialBody {
	return s.sys.Bodies
}

// LoadBodies replaces the whole body set, e.g. from an ephemeris preset.
func (s *Simulation) LoadBodies(bodies []*CelestialBody) error {
	s.sys.Bodies = nil
	s.index = make(map[string]*CelestialBody)
	for _, b := range bodies {
		if err := s.AddBody(b); err != nil {
			return err
		}
	}
	return nil
}

/* Control. */

// Start moves the simulation from stopped to running.
func (s *Simulation) Start() error {
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.paused = false
	s.lastTick = time.Time{}
	s.logger.Log("level", "info", "status", "running", "bodies", len(s.sys.Bodies), "method", s.sys.Method, "step(s)", s.timeStep)
	return nil
}

// Pause suspends physics stepping; the clock state is retained.
func (s *Simulation) Pause() error {
	if !s.running {
		return ErrNotRunning
	}
	s.paused = true
	return nil
}

// Resume continues a paused simulation.
func (s *Simulation) Resume() error {
	if !s.running {
		return ErrNotRunning
	}
	if !s.paused {
		return ErrNotPaused
	}
	s.paused = false
	s.lastTick = time.Time{}
	return nil
}

// Stop halts the simulation. Body state is retained until Reset.
func (s *Simulation) Stop() error {
	if !s.running {
		return ErrNotRunning
	}
	s.running = false
	s.paused = false
	s.logger.Log("level", "info", "status", "stopped", "steps", s.totalSteps)
	return nil
}

// Reset restores every body to its add-time state, zeroes the accumulator and
// sets the clock to the current wall time.
func (s *Simulation) Reset() {
	s.ResetTo(time.Now().UTC())
}

// ResetTo is Reset with an explicit clock value.
func (s *Simulation) ResetTo(dt time.Time) {
	for _, b := range s.sys.Bodies {
		b.restoreInitialState()
	}
	s.accumulator = 0
	s.totalSteps = 0
	s.lastStepWall = 0
	s.timeDesynced = false
	s.lastTick = time.Time{}
	s.setClock(dt)
	s.logger.Log("level", "info", "status", "reset", "date", dt)
}

// SetSpeed sets the time multiplier in simulation seconds per wall second.
func (s *Simulation) SetSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("speed must be positive and finite, got %f", speed)
	}
	s.speed = speed
	return nil
}

// SetTimeStep sets the fixed physics step, clamped to the configured bounds.
func (s *Simulation) SetTimeStep(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) {
		return fmt.Errorf("time step must be positive, got %f", dt)
	}
	s.timeStep = Clamp(dt, s.cfg.MinTimeStep, s.cfg.MaxTimeStep)
	return nil
}

// SetIntegrationMethod switches the N-body scheme at runtime.
func (s *Simulation) SetIntegrationMethod(m IntegrationMethod) error {
	switch m {
	case Euler, RK2, RK4:
		s.sys.Method = m
		return nil
	default:
		return fmt.Errorf("unknown integration method %d", m)
	}
}

// SetTime jumps the simulation to an absolute calendar time. Bodies under
// closed-form propagation recompute exactly; bodies under N-body control keep
// their last integrated state, which desynchronizes calendar time from
// physical state until further stepping. The snapshot flags this.
func (s *Simulation) SetTime(dt time.Time) error {
	if !IsValidSimulationDate(dt) {
		return fmt.Errorf("%s: %w", dt, ErrInvalidDate)
	}
	jd := DateToJulian(dt)
	s.simTime = JulianToJ2000(jd) * SecondsPerDay
	s.physTime = s.simTime
	s.accumulator = 0
	for _, b := range s.sys.Bodies {
		if !b.Analytic {
			s.timeDesynced = true
		}
	}
	if s.timeDesynced {
		s.logger.Log("level", "warning", "status", "time jump", "date", dt, "desynced", true)
	}
	s.propagateAnalytic()
	return nil
}

/* Ticking. */

// Tick samples the wall clock and runs one update. The first tick after a
// start or resume consumes no time.
func (s *Simulation) Tick() (*Snapshot, error) {
	now := time.Now()
	var delta time.Duration
	if !s.lastTick.IsZero() {
		delta = now.Sub(s.lastTick)
	}
	s.lastTick = now
	return s.Update(delta)
}

// Update advances the simulation by the given wall-clock delta, converting it
// to simulation time at the current speed and consuming whole physics steps
// from the accumulator. The accumulator ends below one step; excess beyond
// MaxStepsPerUpdate whole steps is dropped rather than causing a catch-up
// spiral. Calendar time advances smoothly regardless of step granularity.
func (s *Simulation) Update(wallDelta time.Duration) (*Snapshot, error) {
	if !s.running || s.paused {
		return s.snapshot(0), nil
	}
	simDelta := wallDelta.Seconds() * s.speed
	s.accumulator += simDelta
	steps := 0
	for s.accumulator >= s.timeStep && steps < s.cfg.MaxStepsPerUpdate {
		start := time.Now()
		if err := s.sys.Step(s.timeStep); err != nil {
			s.logger.Log("level", "critical", "status", "step failed", "err", err)
			return nil, err
		}
		s.lastStepWall = time.Since(start)
		s.physTime += s.timeStep
		s.accumulator -= s.timeStep
		s.totalSteps++
		steps++
	}
	if s.accumulator >= s.timeStep {
		// Step cap hit, e.g. after a stall. Physics drops the excess while
		// calendar time keeps it, so flag the mismatch.
		s.accumulator = math.Mod(s.accumulator, s.timeStep)
		s.timeDesynced = true
	}
	s.simTime += simDelta
	s.propagateAnalytic()
	return s.snapshot(steps), nil
}

// propagateAnalytic repositions closed-form bodies at the current simulation
// time. Kepler convergence problems are warnings: the best-estimate state is
// still applied.
func (s *Simulation) propagateAnalytic() {
	for _, b := range s.sys.Bodies {
		if !b.Analytic {
			continue
		}
		R, V, err := b.Orbit.StateAt(s.simTime)
		if err != nil {
			s.logger.Log("level", "warning", "body", b.ID, "err", err)
		}
		b.Position, b.Velocity = R, V
	}
}

// Snapshot returns the current body-set snapshot without advancing time.
func (s *Simulation) Snapshot() *Snapshot {
	return s.snapshot(0)
}

func (s *Simulation) snapshot(steps int) *Snapshot {
	bodies := make(map[string]BodyState, len(s.sys.Bodies))
	for _, b := range s.sys.Bodies {
		bodies[b.ID] = BodyState{
			ID:       b.ID,
			Position: b.Position,
			Velocity: b.Velocity,
			Rotation: b.RotationAt(s.simTime),
		}
	}
	return &Snapshot{
		JulianDate:   s.JulianDate(),
		Time:         s.CurrentTime(),
		StepsTaken:   steps,
		TotalSteps:   s.totalSteps,
		StepWall:     s.lastStepWall,
		TimeDesynced: s.timeDesynced,
		Bodies:       bodies,
	}
}

/* Accessors. */

// JulianDate returns the smooth simulation Julian date used for display.
func (s *Simulation) JulianDate() float64 {
	return J2000ToJulian(s.simTime / SecondsPerDay)
}

// PhysicsJulianDate returns the Julian date of the last integrated state,
// which lags JulianDate by less than one step unless steps were dropped.
func (s *Simulation) PhysicsJulianDate() float64 {
	return J2000ToJulian(s.physTime / SecondsPerDay)
}

// CurrentTime returns the simulation calendar time.
func (s *Simulation) CurrentTime() time.Time {
	return JulianToDate(s.JulianDate())
}

// IsRunning returns whether the simulation has been started and not stopped.
func (s *Simulation) IsRunning() bool { return s.running }

// IsPaused returns whether the simulation is paused.
func (s *Simulation) IsPaused() bool { return s.paused }

// Speed returns the time multiplier.
func (s *Simulation) Speed() float64 { return s.speed }

// TimeStep returns the fixed physics step in simulation seconds.
func (s *Simulation) TimeStep() float64 { return s.timeStep }

// Method returns the active integration scheme.
func (s *Simulation) Method() IntegrationMethod { return s.sys.Method }

// System exposes the underlying N-body system for diagnostics.
func (s *Simulation) System() *System { return s.sys }
