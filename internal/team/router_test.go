package team

import "testing"

func TestRoleFor(t *testing.T) {
	r := NewRouter(nil)

	tests := []struct {
		specialty string
		want      string
	}{
		{"writer", "content specialist"},
		{"Designer", "design specialist"},
		{"astrologer", "astrologer specialist"},
	}
	for _, tt := range tests {
		if got := r.RoleFor(tt.specialty); got != tt.want {
			t.Errorf("RoleFor(%q) = %q, want %q", tt.specialty, got, tt.want)
		}
	}
}

func TestRoleFor_Override(t *testing.T) {
	r := NewRouter(map[string]string{"writer": "ghostwriter"})

	if got := r.RoleFor("writer"); got != "ghostwriter" {
		t.Errorf("RoleFor(writer) = %q, want ghostwriter", got)
	}
	// Other defaults survive the override.
	if got := r.RoleFor("designer"); got != "design specialist" {
		t.Errorf("RoleFor(designer) = %q, want design specialist", got)
	}
}

func TestLeadRoleFor(t *testing.T) {
	r := NewRouter(nil)

	if got := r.LeadRoleFor([]string{"developer", "writer"}); got != "engineering specialist lead" {
		t.Errorf("LeadRoleFor = %q, want engineering specialist lead", got)
	}
	if got := r.LeadRoleFor(nil); got != DefaultLeadRole {
		t.Errorf("LeadRoleFor(nil) = %q, want %q", got, DefaultLeadRole)
	}
}
