package simulation_test

import (
	"fmt"

	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/simulation"
	"github.com/nvandessel/epidash/internal/trajectory"
)

// ExampleSimulate runs a classic SIR outbreak with R0 = 3 over 50 time units.
func ExampleSimulate() {
	opts := simulation.DefaultOptions()
	opts.MaxTime = 50

	t, err := simulation.Simulate(models.SIR, 0.01, models.Rates{Beta: 0.3, Gamma: 0.1}, opts)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	s := trajectory.Summarize(t)
	fmt.Printf("steps=%d peakI=%.2f finalR=%.2f\n", s.Steps, s.PeakI, s.FinalR)
	// Output:
	// steps=5000 peakI=0.30 finalR=0.83
}
