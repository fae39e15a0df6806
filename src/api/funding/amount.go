package funding

import "math"

// Amount maps a verdict score to the payout in whole dollars.
//
//	10          -> 100
//	9.1 .. 9.9  -> 5 .. 10 (interpolated)
//	8.0 .. 9.0  -> 1 .. 4  (interpolated)
//	otherwise   -> 1
func Amount(score float64) int {
	switch {
	case score == 10:
		return 100
	case score >= 9.1 && score <= 9.9:
		return roundHalfUp(5 + ((score-9.1)/0.8)*5)
	case score >= 8.0 && score <= 9.0:
		return roundHalfUp(1 + (score-8.0)*3)
	}
	return 1
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
