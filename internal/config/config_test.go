package config

import (
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("default config failed validation: %v", ValidationErrors(errs))
	}
}

func TestValidate_ClassifierWeights(t *testing.T) {
	cfg := Default()
	cfg.Classifier.SemanticWeight = 0.9 // weights now sum to 1.4

	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation error for weight sum")
	}
	found := false
	for _, e := range errs {
		if e.Field == "classifier" && strings.Contains(e.Message, "sum to 1.0") {
			found = true
		}
	}
	if !found {
		t.Errorf("weight-sum error not reported: %v", ValidationErrors(errs))
	}
}

func TestValidate_ThresholdOrdering(t *testing.T) {
	cfg := Default()
	cfg.Classifier.WeakSynergyThreshold = 0.95

	errs := cfg.Validate()
	found := false
	for _, e := range errs {
		if e.Field == "classifier.weak_synergy_threshold" {
			found = true
		}
	}
	if !found {
		t.Errorf("threshold ordering error not reported: %v", ValidationErrors(errs))
	}
}

func TestValidate_TeamShares(t *testing.T) {
	cfg := Default()
	cfg.Team.LeadShare = 0.6 // shares now sum to 1.2

	errs := cfg.Validate()
	found := false
	for _, e := range errs {
		if e.Field == "team" {
			found = true
		}
	}
	if !found {
		t.Errorf("team share error not reported: %v", ValidationErrors(errs))
	}
}

func TestValidate_StoreDriver(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		path    string
		wantErr bool
	}{
		{"memory", "memory", "", false},
		{"sqlite with path", "sqlite", "/tmp/graph.db", false},
		{"sqlite without path", "sqlite", "", true},
		{"unknown driver", "postgres", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Store.Driver = tt.driver
			cfg.Store.Path = tt.path

			errs := cfg.Validate()
			if tt.wantErr && len(errs) == 0 {
				t.Error("expected validation error, got none")
			}
			if !tt.wantErr && len(errs) > 0 {
				t.Errorf("unexpected validation errors: %v", ValidationErrors(errs))
			}
		})
	}
}

func TestValidate_Aggregation(t *testing.T) {
	cfg := Default()
	cfg.Team.DefaultAggregation = "majority" // not a valid strategy name

	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation error for aggregation strategy")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	msg := errs.Error()
	if !strings.Contains(msg, "2 validation errors") {
		t.Errorf("unexpected aggregate message: %q", msg)
	}

	single := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if single.Error() != "a: bad (got: 1)" {
		t.Errorf("unexpected single message: %q", single.Error())
	}
}
