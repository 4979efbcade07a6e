package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/gizmo-config/gizmo-go/pkg/examples"
)

// reading is a simulated sensor state in centidegrees and 0.01 %.
type reading struct {
	temperature int
	humidity    int
}

// next moves the reading by a small random step, bounded to plausible
// indoor values.
func (r reading) next(rng *rand.Rand) reading {
	r.temperature = clamp(r.temperature+rng.IntN(41)-20, 1500, 3000)
	r.humidity = clamp(r.humidity+rng.IntN(101)-50, 2000, 8000)
	return r
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func runSimulation(ctx context.Context, sensor *examples.EnvSensor, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	def := examples.DefaultEnvSensorConfig()
	r := reading{temperature: def.Temperature, humidity: def.Humidity}
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r = r.next(rng)
			if err := sensor.Report(r.temperature, r.humidity); err != nil {
				logger.Warn("report failed", "error", err)
				continue
			}
			logger.Debug("reading published", "temperature", r.temperature, "humidity", r.humidity)
		}
	}
}
