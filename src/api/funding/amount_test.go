package funding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmount(t *testing.T) {
	cases := []struct {
		score float64
		want  int
	}{
		{10, 100},
		{9.9, 10},
		{9.5, 8},
		{9.1, 5},
		{9.0, 4},
		{8.5, 3},
		{8.2, 2},
		{8.0, 1},
		// Gaps between bands and anything below the funding line fall back to 1.
		{9.05, 1},
		{9.95, 1},
		{7.9, 1},
		{0, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Amount(tc.score), "score %v", tc.score)
	}
}

func TestAmountDeterministic(t *testing.T) {
	for s := 8.0; s <= 10.0; s += 0.05 {
		assert.Equal(t, Amount(s), Amount(s))
	}
}

func TestAmountNonDecreasingWithinBands(t *testing.T) {
	bands := [][2]float64{{8.0, 9.0}, {9.1, 9.9}}
	for _, b := range bands {
		prev := Amount(b[0])
		for i := 1; i < 100; i++ {
			s := b[0] + (b[1]-b[0])*float64(i)/100
			got := Amount(s)
			assert.GreaterOrEqual(t, got, prev, "score %v", s)
			prev = got
		}
		assert.GreaterOrEqual(t, Amount(b[1]), prev)
	}
}
