package component

import (
	"fmt"
	"math"
)

// FormatUSD renders a dollar amount with a K/M/B suffix.
func FormatUSD(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("$%.2fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

// FormatPrice keeps significant digits for sub-cent token prices.
func FormatPrice(v float64) string {
	switch {
	case v == 0:
		return "-"
	case v < 0.0001:
		return fmt.Sprintf("$%.2e", v)
	case v < 1:
		return fmt.Sprintf("$%.6f", v)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

// FormatSOL renders a SOL amount.
func FormatSOL(v float64) string {
	return fmt.Sprintf("◎%.2f", v)
}
