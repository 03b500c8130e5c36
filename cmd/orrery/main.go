package main

import (
	"flag"
	"log"
	"os"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/orrery-sim/orrery"
)

// Loads the solar-system preset and propagates it, driving the clock with
// synthetic frames the way a render loop would.

var (
	days    float64
	speed   float64
	method  string
	verbose bool
)

func init() {
	flag.Float64Var(&days, "days", 365.25, "number of simulated days to run")
	flag.Float64Var(&speed, "speed", 31557600, "simulation seconds per wall second")
	flag.StringVar(&method, "method", "rk4", "integration method (euler, rk2, rk4)")
	flag.BoolVar(&verbose, "verbose", false, "log every frame")
}

func main() {
	flag.Parse()
	cfg, err := orrery.LoadConfig()
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	m, err := orrery.ParseIntegrationMethod(method)
	if err != nil {
		log.Fatal(err)
	}
	cfg.Method = m

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	sim, err := orrery.NewSimulation(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	now := time.Now().UTC()
	jd := orrery.DateToJulian(now)
	var bodies []*orrery.CelestialBody
	if cfg.VSOP87 {
		bodies, err = orrery.SolarSystemVSOP87At(jd, cfg.VSOP87Dir)
	} else {
		bodies, err = orrery.SolarSystemAt(jd)
	}
	if err != nil {
		log.Fatalf("preset: %s", err)
	}
	if err = sim.LoadBodies(bodies); err != nil {
		log.Fatalf("load: %s", err)
	}
	sim.ResetTo(now)
	if err = sim.SetSpeed(speed); err != nil {
		log.Fatal(err)
	}
	if err = sim.Start(); err != nil {
		log.Fatal(err)
	}

	e0 := sim.System().TotalEnergy()
	frame := 16 * time.Millisecond
	endJD := jd + days
	for sim.JulianDate() < endJD {
		snap, err := sim.Update(frame)
		if err != nil {
			log.Fatalf("tick: %s", err)
		}
		if verbose {
			logger.Log("jd", snap.JulianDate, "steps", snap.StepsTaken, "stepWall", snap.StepWall)
		}
	}
	e1 := sim.System().TotalEnergy()

	snap := sim.Snapshot()
	earth := snap.Bodies["earth"]
	logger.Log("level", "notice", "status", "finished", "date", snap.Time.Format("2006-01-02 15:04:05"),
		"steps", snap.TotalSteps, "ΔE/E", (e1-e0)/e0, "earth_r(m)", earth.Position.Norm())
	if err = sim.Stop(); err != nil {
		log.Fatal(err)
	}
}
