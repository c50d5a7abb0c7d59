package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadGoldenClaims reads and parses a golden claim set from a JSON file.
func LoadGoldenClaims(path string) ([]GoldenClaim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden claims file: %w", err)
	}

	var claims []GoldenClaim
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse golden claims: %w", err)
	}

	return claims, nil
}

var validDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// ValidateGoldenClaims checks that all golden claims have required fields and
// valid values.
func ValidateGoldenClaims(claims []GoldenClaim) error {
	seen := make(map[string]struct{}, len(claims))

	for i, c := range claims {
		if c.ID == "" {
			return fmt.Errorf("claim at index %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("claim at index %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}

		if len(c.BillJSON) == 0 {
			return fmt.Errorf("claim %q: missing bill_json", c.ID)
		}
		if !c.ExpectedOverall.IsValid() {
			return fmt.Errorf("claim %q: invalid expected_overall %q", c.ID, c.ExpectedOverall)
		}
		for j, item := range c.ExpectedItems {
			if !item.Verdict.IsValid() {
				return fmt.Errorf("claim %q: expected item %d has invalid verdict %q", c.ID, j, item.Verdict)
			}
		}
		if !validDifficulties[c.Difficulty] {
			return fmt.Errorf("claim %q: invalid difficulty %q (must be easy/medium/hard)", c.ID, c.Difficulty)
		}
	}

	return nil
}
