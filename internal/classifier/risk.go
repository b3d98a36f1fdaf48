// Package classifier provides the keyword-weighted intensity score.
package classifier

import "strings"

// Risk returns the intensity score for a message: each configured
// signal group whose phrases hit adds its weight, and the total is
// capped. The score only biases intervention choice toward somatic
// modules. It is never treated as a safety signal and never branches
// into any protocol.
func (c *Classifier) Risk(message string) int {
	lower := strings.ToLower(message)

	score := 0
	for _, sig := range c.risk.Signals {
		if containsAny(lower, sig.Phrases) {
			score += sig.Weight
		}
	}

	if c.risk.Cap > 0 && score > c.risk.Cap {
		score = c.risk.Cap
	}
	return score
}
