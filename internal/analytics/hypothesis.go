package analytics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
)

// DefaultAlpha is the significance level used when none is given.
const DefaultAlpha = 0.05

// Alternative selects how the p-value is derived from the t statistic.
type Alternative string

const (
	// TwoSided uses P(|T| >= |t|).
	TwoSided Alternative = "two-sided"
	// Greater uses P(T >= t), matching the directional null "mean A <= mean B".
	Greater Alternative = "greater"
)

// ParseAlternative converts a config string to an Alternative.
func ParseAlternative(s string) (Alternative, error) {
	switch Alternative(s) {
	case TwoSided, Greater:
		return Alternative(s), nil
	default:
		return "", fmt.Errorf("unknown test alternative %q: %w", s, ports.ErrInvalidRequest)
	}
}

// Direction states which sample mean is larger.
type Direction string

const (
	AGreater Direction = "A>B"
	BGreater Direction = "B>A"
	Equal    Direction = "A=B"
)

// TestOptions configures WelchTTestWithOptions.
type TestOptions struct {
	Alpha       float64     // Significance level, DefaultAlpha when zero
	Alternative Alternative // TwoSided when empty
}

// TestResult is the outcome of Welch's two-sample t-test.
type TestResult struct {
	LabelA, LabelB string
	NA, NB         int
	MeanA, MeanB   float64
	VarA, VarB     float64

	T           float64 // Welch t statistic
	DF          float64 // Welch–Satterthwaite degrees of freedom
	PValue      float64
	Alpha       float64
	Alternative Alternative
	Reject      bool // Null "mean A <= mean B" rejected
	Direction   Direction
}

// Confidence is 1 - p, the figure the dashboard showed as "statistical confidence".
func (r TestResult) Confidence() float64 {
	return 1 - r.PValue
}

// WelchTTest runs a two-sided Welch's t-test of sample a against sample b.
// The null "mean a <= mean b" is rejected iff p < alpha and mean a > mean b.
// An alpha of zero selects DefaultAlpha.
func WelchTTest(a, b []float64, alpha float64) (TestResult, error) {
	return WelchTTestWithOptions(a, b, TestOptions{Alpha: alpha, Alternative: TwoSided})
}

// WelchTTestWithOptions runs Welch's t-test with an explicit alternative.
func WelchTTestWithOptions(a, b []float64, opts TestOptions) (TestResult, error) {
	alpha := opts.Alpha
	if alpha == 0 {
		alpha = DefaultAlpha
	}
	if !(alpha > 0 && alpha < 1) {
		return TestResult{}, fmt.Errorf("alpha %g not in (0,1): %w", alpha, ports.ErrInvalidRequest)
	}
	alt := opts.Alternative
	if alt == "" {
		alt = TwoSided
	}
	if alt != TwoSided && alt != Greater {
		return TestResult{}, fmt.Errorf("unknown test alternative %q: %w", alt, ports.ErrInvalidRequest)
	}
	if len(a) < 2 || len(b) < 2 {
		return TestResult{}, fmt.Errorf("t-test needs at least 2 observations per sample, have %d and %d: %w",
			len(a), len(b), ports.ErrInsufficientData)
	}

	na, nb := float64(len(a)), float64(len(b))
	meanA, varA := meanVariance(a)
	meanB, varB := meanVariance(b)

	res := TestResult{
		NA:          len(a),
		NB:          len(b),
		MeanA:       meanA,
		MeanB:       meanB,
		VarA:        varA,
		VarB:        varB,
		Alpha:       alpha,
		Alternative: alt,
		Direction:   direction(meanA, meanB),
	}

	seA, seB := varA/na, varB/nb
	se2 := seA + seB
	diff := meanA - meanB

	if se2 == 0 {
		// Both samples are constant: the statistic is 0/0 or ±x/0.
		res.DF = na + nb - 2
		switch {
		case diff == 0:
			res.T = 0
			res.PValue = 1
		case diff > 0:
			res.T = math.Inf(1)
			res.PValue = 0
		default:
			res.T = math.Inf(-1)
			res.PValue = 0
			if alt == Greater {
				res.PValue = 1
			}
		}
	} else {
		res.T = diff / math.Sqrt(se2)
		res.DF = se2 * se2 / (seA*seA/(na-1) + seB*seB/(nb-1))
		res.PValue = pValue(res.T, res.DF, alt)
	}

	res.Reject = res.PValue < alpha && meanA > meanB
	return res, nil
}

// CompareRegimes runs the test on the PnL vectors of two regimes of a segmentation.
func CompareRegimes(segments map[domain.RegimeLabel][]domain.Trade, a, b domain.RegimeLabel, opts TestOptions) (TestResult, error) {
	ta, ok := segments[a]
	if !ok {
		return TestResult{}, fmt.Errorf("regime %q not in segmentation: %w", a, ports.ErrNotFound)
	}
	tb, ok := segments[b]
	if !ok {
		return TestResult{}, fmt.Errorf("regime %q not in segmentation: %w", b, ports.ErrNotFound)
	}

	res, err := WelchTTestWithOptions(domain.PnLs(ta), domain.PnLs(tb), opts)
	if err != nil {
		return TestResult{}, fmt.Errorf("%s vs %s: %w", a, b, err)
	}
	res.LabelA, res.LabelB = string(a), string(b)
	return res, nil
}

func pValue(t, df float64, alt Alternative) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	var p float64
	if alt == Greater {
		p = dist.Survival(t)
	} else {
		p = 2 * dist.Survival(math.Abs(t))
	}
	return math.Min(1, math.Max(0, p))
}

func direction(a, b float64) Direction {
	switch {
	case a > b:
		return AGreater
	case b > a:
		return BGreater
	default:
		return Equal
	}
}
