package team

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/crescendo/internal/config"
)

func result(memberID, specialty string, claims []string, score float64) memberResult {
	return memberResult{
		member: Member{ID: memberID, Specialty: specialty, State: MemberCompleted},
		output: Output{Claims: claims, Score: score},
	}
}

func TestMergeOutputs_Dedupes(t *testing.T) {
	results := []memberResult{
		result("m1", "writer", []string{"draft the outline", "cite sources"}, 0.8),
		result("m2", "editor", []string{"Cite Sources", "tighten the intro"}, 0.7),
	}

	merged := mergeOutputs(results)
	lines := strings.Split(merged, "\n")
	if len(lines) != 3 {
		t.Fatalf("merged lines = %d, want 3 (case-insensitive dedupe): %q", len(lines), merged)
	}
	if lines[0] != "draft the outline" {
		t.Errorf("first line = %q, want first-seen order preserved", lines[0])
	}
}

func TestVoteOutputs_MajorityWins(t *testing.T) {
	cfg := config.Default().Team
	results := []memberResult{
		result("m1", "a", []string{"ship it", "rewrite everything"}, 0.6),
		result("m2", "b", []string{"ship it"}, 0.6),
		result("m3", "c", []string{"ship it"}, 0.6),
	}

	got := voteOutputs(results, cfg)
	if got != "ship it" {
		t.Errorf("voteOutputs = %q, want the majority claim only", got)
	}
}

func TestVoteOutputs_SingletonTrustPolicy(t *testing.T) {
	results := []memberResult{
		result("m1", "a", []string{"common finding", "novel insight"}, 0.95),
		result("m2", "b", []string{"common finding"}, 0.6),
		result("m3", "c", []string{"common finding"}, 0.6),
	}

	cfg := config.Default().Team
	cfg.TrustSingletonClaims = false
	if got := voteOutputs(results, cfg); strings.Contains(got, "novel insight") {
		t.Errorf("untrusted singleton survived: %q", got)
	}

	cfg.TrustSingletonClaims = true
	cfg.SingletonTrustThreshold = 0.9
	if got := voteOutputs(results, cfg); !strings.Contains(got, "novel insight") {
		t.Errorf("high-confidence singleton dropped under trust policy: %q", got)
	}

	cfg.SingletonTrustThreshold = 0.99
	if got := voteOutputs(results, cfg); strings.Contains(got, "novel insight") {
		t.Errorf("singleton below the trust threshold survived: %q", got)
	}
}

func TestConsensusOutputs(t *testing.T) {
	passing := []memberResult{
		result("m1", "a", []string{"finding"}, 0.8),
		result("m2", "b", []string{"finding"}, 0.7),
	}
	out, err := consensusOutputs(passing, 0.6)
	if err != nil {
		t.Fatalf("consensusOutputs() error = %v", err)
	}
	if out != "finding" {
		t.Errorf("output = %q, want finding", out)
	}

	failing := []memberResult{
		result("m1", "a", []string{"finding"}, 0.8),
		result("m2", "b", []string{"finding"}, 0.4),
	}
	if _, err := consensusOutputs(failing, 0.6); err == nil {
		t.Fatal("consensus reached despite a member below threshold")
	}
}
