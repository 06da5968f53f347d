package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinSampleSize is the smallest sample a correlation is computed for.
const MinSampleSize = 3

// Correlation holds both coefficients and their two-tailed p-values.
// Coefficients are NaN when the sample is too small or constant.
type Correlation struct {
	Pearson   float64 `json:"pearson_r"`
	PearsonP  float64 `json:"pearson_p"`
	Spearman  float64 `json:"spearman_r"`
	SpearmanP float64 `json:"spearman_p"`
	N         int     `json:"n"`
}

// Valid reports whether the Pearson coefficient could be computed.
func (c Correlation) Valid() bool {
	return !math.IsNaN(c.Pearson)
}

// Correlate computes Pearson and Spearman correlation of paired samples.
func Correlate(x, y []float64) Correlation {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	x, y = x[:n], y[:n]

	nan := math.NaN()
	result := Correlation{Pearson: nan, PearsonP: nan, Spearman: nan, SpearmanP: nan, N: n}
	if n < MinSampleSize || constant(x) || constant(y) {
		return result
	}

	if r, err := stats.Pearson(x, y); err == nil && !math.IsNaN(r) {
		result.Pearson = clamp(r)
		result.PearsonP = correlationPValue(result.Pearson, n)
	}

	rho := stat.Correlation(ranks(x), ranks(y), nil)
	if !math.IsNaN(rho) {
		result.Spearman = clamp(rho)
		result.SpearmanP = correlationPValue(result.Spearman, n)
	}
	return result
}

// correlationPValue converts r to a t statistic with n-2 degrees of freedom
// and returns the two-tailed p-value.
func correlationPValue(r float64, n int) float64 {
	if n < MinSampleSize {
		return 1.0
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - dist.CDF(math.Abs(t)))
}

// ranks assigns 1-based ranks, averaging ties.
func ranks(data []float64) []float64 {
	n := len(data)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return data[order[i]] < data[order[j]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i + 1
		for j < n && data[order[j]] == data[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			out[order[k]] = avg
		}
		i = j
	}
	return out
}

func constant(data []float64) bool {
	for _, v := range data[1:] {
		if v != data[0] {
			return false
		}
	}
	return true
}

func clamp(r float64) float64 {
	return math.Max(-1, math.Min(1, r))
}
