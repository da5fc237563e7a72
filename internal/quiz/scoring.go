package quiz

import (
	"math"
	"sort"
)

// IsCorrectAnswer compares the selected choice ids with the correct ones as
// sets. Order does not matter and there is no partial credit.
func IsCorrectAnswer(selected, correct []int64) bool {
	if len(selected) != len(correct) {
		return false
	}

	a := append([]int64(nil), selected...)
	b := append([]int64(nil), correct...)
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ScorePercentage returns round(correct/total*100), or 0 for an empty quiz.
func ScorePercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
