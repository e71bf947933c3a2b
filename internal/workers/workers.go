// Package workers picks a default worker count from the current CPU load.
package workers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultInterval is how long CPU load is sampled.
const DefaultInterval = time.Second

// SampleFunc returns the overall CPU load in percent, measured over interval.
type SampleFunc func(ctx context.Context, interval time.Duration) (float64, error)

// Selector derives a worker count from the number of CPUs and how busy they are.
type Selector struct {
	// CPUs is the number of logical CPUs available
	CPUs int

	// Interval is the load sampling window
	Interval time.Duration

	// Sample measures the CPU load
	Sample SampleFunc
}

// NewSelector returns a Selector sampling the host's CPUs.
func NewSelector() Selector {
	return Selector{
		CPUs:     runtime.NumCPU(),
		Interval: DefaultInterval,
		Sample:   SampleCPU,
	}
}

// Select returns max(1, floor(CPUs * (1 - load/100))), along with the measured load.
func (s Selector) Select(ctx context.Context) (int, float64, error) {
	load, err := s.Sample(ctx, s.Interval)
	if err != nil {
		return 1, 0, fmt.Errorf("sampling cpu load: %w", err)
	}

	load = math.Min(math.Max(load, 0), 100)

	available := int(float64(s.CPUs) * (1 - load/100))

	return max(1, available), load, nil
}

// SampleCPU measures the combined load of all CPUs over interval.
func SampleCPU(ctx context.Context, interval time.Duration) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, err
	}

	if len(percents) == 0 {
		return 0, errors.New("no cpu load reported")
	}

	return percents[0], nil
}
