package normal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImplementationsAgree(t *testing.T) {
	g, e := Gonum{}, Erf{}
	for x := -8.0; x <= 8.0; x += 0.25 {
		require.InDelta(t, e.CDF(x), g.CDF(x), 1e-12, "cdf at %v", x)
		require.InDelta(t, e.Prob(x), g.Prob(x), 1e-12, "pdf at %v", x)
	}
}

func TestKnownValues(t *testing.T) {
	for name, d := range map[string]Distribution{"gonum": Gonum{}, "erf": Erf{}} {
		t.Run(name, func(t *testing.T) {
			require.InDelta(t, 0.5, d.CDF(0), 1e-15)
			require.InDelta(t, 0.975002104851780, d.CDF(1.96), 1e-9)
			require.InDelta(t, 0.024997895148220, d.CDF(-1.96), 1e-9)
			require.InDelta(t, 1/math.Sqrt(2*math.Pi), d.Prob(0), 1e-15)
		})
	}
}

func TestSymmetry(t *testing.T) {
	d := Standard
	for _, x := range []float64{0.1, 0.5, 1, 2.5, 4} {
		require.InDelta(t, 1.0, d.CDF(x)+d.CDF(-x), 1e-12)
		require.Equal(t, d.Prob(x), d.Prob(-x))
	}
}
