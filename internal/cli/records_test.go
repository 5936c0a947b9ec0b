package cli

import (
	"testing"

	"databank/internal/api"
	"databank/internal/databank"
)

func TestNewRecordGroupBuildsTheFullCommandSet(t *testing.T) {
	group := newRecordGroup("skills", "skill",
		"Manage databank skills",
		func(rt *runtime) *api.Resource[databank.Skill] { return rt.bank.Skills })

	if group.Use != "skills" {
		t.Errorf("Unexpected group use: %s", group.Use)
	}

	want := []string{"list", "get", "add", "update", "delete"}
	for _, name := range want {
		found := false
		for _, sub := range group.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected subcommand %q on the record group", name)
		}
	}
}

func TestRecordPayloadValidatesBeforeForwarding(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		expectError bool
	}{
		{
			name: "valid skill",
			raw:  `{"name": "Go", "category": "technical"}`,
		},
		{
			name:        "not JSON",
			raw:         `name=Go`,
			expectError: true,
		},
		{
			name:        "fails input validation",
			raw:         `{"name": "", "category": "technical"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := recordPayload[databank.Skill](tt.raw)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected an error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("recordPayload failed: %v", err)
			}
			if string(payload) != tt.raw {
				t.Errorf("Expected the original bytes to be forwarded, got %s", payload)
			}
		})
	}
}

func TestParseRecordID(t *testing.T) {
	tests := []struct {
		arg         string
		want        int
		expectError bool
	}{
		{arg: "7", want: 7},
		{arg: "0", expectError: true},
		{arg: "-3", expectError: true},
		{arg: "seven", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			id, err := parseRecordID(tt.arg)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected an error for %q", tt.arg)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRecordID failed: %v", err)
			}
			if id != tt.want {
				t.Errorf("Expected id %d, got %d", tt.want, id)
			}
		})
	}
}
