package team

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/errors"
)

// successfulOutputs filters results down to completed members.
func successfulOutputs(results []memberResult) []memberResult {
	out := make([]memberResult, 0, len(results))
	for _, r := range results {
		if r.err == nil && r.member.State == MemberCompleted {
			out = append(out, r)
		}
	}
	return out
}

// claimsOf returns a member's claims, falling back to its content as a
// single claim so claimless workers still contribute.
func claimsOf(r memberResult) []string {
	if len(r.output.Claims) > 0 {
		return r.output.Claims
	}
	if r.output.Content != "" {
		return []string{r.output.Content}
	}
	return nil
}

// mergeOutputs unions and dedupes contributions from successful
// members, preserving first-seen order.
func mergeOutputs(results []memberResult) string {
	seen := make(map[string]bool)
	var kept []string
	for _, r := range results {
		for _, claim := range claimsOf(r) {
			key := strings.ToLower(strings.TrimSpace(claim))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			kept = append(kept, strings.TrimSpace(claim))
		}
	}
	return strings.Join(kept, "\n")
}

// voteOutputs keeps claims reported by a majority of successful
// members. A singleton claim survives only under the configured trust
// policy, when its member's self-reported score clears the threshold.
func voteOutputs(results []memberResult, cfg config.TeamConfig) string {
	type tally struct {
		count     int
		first     string
		bestScore float64
	}
	counts := make(map[string]*tally)
	var order []string
	for _, r := range results {
		for _, claim := range claimsOf(r) {
			key := strings.ToLower(strings.TrimSpace(claim))
			if key == "" {
				continue
			}
			t, ok := counts[key]
			if !ok {
				t = &tally{first: strings.TrimSpace(claim)}
				counts[key] = t
				order = append(order, key)
			}
			t.count++
			if r.output.Score > t.bestScore {
				t.bestScore = r.output.Score
			}
		}
	}

	majority := len(results)/2 + 1
	var kept []string
	for _, key := range order {
		t := counts[key]
		switch {
		case t.count >= majority:
			kept = append(kept, t.first)
		case cfg.TrustSingletonClaims && t.bestScore >= cfg.SingletonTrustThreshold:
			kept = append(kept, t.first)
		}
	}
	return strings.Join(kept, "\n")
}

// consensusOutputs requires every successful member's score to clear
// the threshold; the combined output is the merged contributions.
func consensusOutputs(results []memberResult, threshold float64) (string, error) {
	for _, r := range results {
		if r.output.Score < threshold {
			return "", errors.NewTeamError(
				fmt.Sprintf("member score %.2f below consensus threshold %.2f", r.output.Score, threshold),
				errors.ErrMemberFailure,
			).WithMemberID(r.member.ID)
		}
	}
	return mergeOutputs(results), nil
}
