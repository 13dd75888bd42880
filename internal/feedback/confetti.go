package feedback

import (
	"math/rand"

	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

// piece is one confetti symbol. Positions are percentages of the viewport,
// timings are seconds.
type piece struct {
	Left, Top       float64
	Delay, Duration float64
	Symbol          string
}

func scatter(rng *rand.Rand, n int) []piece {
	out := make([]piece, n)
	for i := range out {
		out[i] = piece{
			Left:     rng.Float64() * 100,
			Top:      rng.Float64() * 100,
			Delay:    rng.Float64() * 2,
			Duration: 2 + rng.Float64()*3,
			Symbol:   wizard.ConfettiSymbols[rng.Intn(len(wizard.ConfettiSymbols))],
		}
	}
	return out
}
