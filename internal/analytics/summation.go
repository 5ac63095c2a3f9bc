package analytics

import "math"

// compensatedSum adds values with Neumaier's variant of Kahan summation, which keeps
// the rounding error bounded when PnL values span several orders of magnitude.
func compensatedSum(values []float64) float64 {
	var sum, c float64
	for _, v := range values {
		t := sum + v
		if math.Abs(sum) >= math.Abs(v) {
			c += (sum - t) + v
		} else {
			c += (v - t) + sum
		}
		sum = t
	}
	return sum + c
}

// mean returns the compensated arithmetic mean. Callers guarantee len(values) > 0.
func mean(values []float64) float64 {
	return compensatedSum(values) / float64(len(values))
}

// meanVariance returns the mean and the unbiased (n-1) sample variance using the
// corrected two-pass algorithm. Variance is NaN when fewer than two values are given.
func meanVariance(values []float64) (float64, float64) {
	n := len(values)
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	m := mean(values)
	if n < 2 {
		return m, math.NaN()
	}

	sq := make([]float64, n)
	dev := make([]float64, n)
	for i, v := range values {
		d := v - m
		dev[i] = d
		sq[i] = d * d
	}
	// The second term removes the residual error left in the mean.
	sumDev := compensatedSum(dev)
	ss := compensatedSum(sq) - sumDev*sumDev/float64(n)
	if ss < 0 {
		ss = 0
	}
	return m, ss / float64(n-1)
}
