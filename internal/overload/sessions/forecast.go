package sessions

import "math"

// linearRegressionPredict fits a least-squares line through (x, y) and
// returns the predicted y at predictX. The second return value is false
// when there is not enough data or the x values carry no variance.
func linearRegressionPredict(x, y []float64, predictX float64) (float64, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, false
	}

	n := float64(len(x))
	var meanX, meanY float64
	for i := range x {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= n
	meanY /= n

	var num, den float64
	for i := range x {
		num += (x[i] - meanX) * (y[i] - meanY)
		den += (x[i] - meanX) * (x[i] - meanX)
	}
	if den == 0 {
		return 0, false
	}

	slope := num / den
	intercept := meanY - slope*meanX
	return intercept + slope*predictX, true
}

// holtLinearPredict runs Holt's linear method (double exponential
// smoothing, no seasonal component) over the series and forecasts
// `steps` values ahead. Handles plateaus better than a straight
// regression line. Returns false with fewer than two observations.
func holtLinearPredict(series []float64, alpha, beta float64, steps int) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}

	s := series[0]
	b := series[1] - series[0]
	for t := 1; t < len(series); t++ {
		lastS := s
		s = alpha*series[t] + (1-alpha)*(s+b)
		b = beta*(s-lastS) + (1-beta)*b
	}
	return s + b*float64(steps), true
}

// pearsonCorrelation computes the Pearson correlation coefficient of
// the two series. A degenerate series (zero variance) yields 0. The
// second return value is false when the input is unusable.
func pearsonCorrelation(x, y []float64) (float64, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, false
	}

	n := float64(len(x))
	var meanX, meanY float64
	for i := range x {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= n
	meanY /= n

	var num, denX, denY float64
	for i := range x {
		num += (x[i] - meanX) * (y[i] - meanY)
		denX += (x[i] - meanX) * (x[i] - meanX)
		denY += (y[i] - meanY) * (y[i] - meanY)
	}

	den := math.Sqrt(denX * denY)
	if den == 0 {
		return 0, true
	}
	return num / den, true
}
