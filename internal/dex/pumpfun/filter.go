package pumpfun

import "fmt"

// CheckResult: результат проверки фильтра.
type CheckResult struct {
	OK      bool
	Message string
}

// CheckBondingCurve checks that percent lies within [min, max], bounds inclusive.
func CheckBondingCurve(percent, min, max float64) CheckResult {
	detail := fmt.Sprintf("Bonding Curve Percentage: %s vs Range: %s - %s",
		FormatPercent(percent), FormatPercent(min), FormatPercent(max))

	switch {
	case percent < min:
		return CheckResult{OK: false, Message: "Bonding curve percentage is below the minimum threshold -> " + detail}
	case percent > max:
		return CheckResult{OK: false, Message: "Bonding curve percentage exceeds the maximum threshold -> " + detail}
	default:
		return CheckResult{OK: true, Message: "Bonding curve percentage is within the range -> " + detail}
	}
}
