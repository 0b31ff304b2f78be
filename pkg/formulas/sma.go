package formulas

import (
	"github.com/markcheno/go-talib"
)

// SMA calculates a simple moving average over the input series.
// The result has the same length as the input; entries before the window
// fills are nil, matching how the dashboard suppresses the overlay until
// enough history exists.
func SMA(data []float64, window int) []*float64 {
	out := make([]*float64, len(data))
	if window <= 0 || len(data) < window {
		return out
	}

	sma := talib.Sma(data, window)
	for i := window - 1; i < len(sma); i++ {
		v := sma[i]
		out[i] = &v
	}
	return out
}
