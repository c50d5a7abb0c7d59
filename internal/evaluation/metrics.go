package evaluation

import (
	"strings"

	"github.com/mediaudit/backend/internal/domain/entities"
)

// CategoryAccuracy is the share of items whose matched category equals the
// expected one, case-insensitively. Length mismatches count the missing side
// as wrong.
func CategoryAccuracy(expected []ExpectedItem, actual []entities.ItemVerdict) float64 {
	return itemAccuracy(expected, actual, func(e ExpectedItem, a entities.ItemVerdict) bool {
		return strings.EqualFold(e.Category, a.MatchedCategory)
	})
}

// VerdictAccuracy is the share of items whose verdict equals the expected
// one.
func VerdictAccuracy(expected []ExpectedItem, actual []entities.ItemVerdict) float64 {
	return itemAccuracy(expected, actual, func(e ExpectedItem, a entities.ItemVerdict) bool {
		return e.Verdict == a.Verdict
	})
}

func itemAccuracy(expected []ExpectedItem, actual []entities.ItemVerdict, match func(ExpectedItem, entities.ItemVerdict) bool) float64 {
	total := len(expected)
	if len(actual) > total {
		total = len(actual)
	}
	if total == 0 {
		return 1
	}

	correct := 0
	for i := range expected {
		if i >= len(actual) {
			break
		}
		if match(expected[i], actual[i]) {
			correct++
		}
	}
	return float64(correct) / float64(total)
}
