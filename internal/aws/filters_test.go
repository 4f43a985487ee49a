package aws

import (
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
)

func TestNormalizeFilters(t *testing.T) {
	filters, err := normalizeFilters([]any{
		map[string]any{"Name": "state", "Values": []any{"available"}},
		map[string]any{"name": "architecture", "values": "x86_64,arm64"},
		"is-public=true",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 3 {
		t.Fatalf("got %d filters: %v", len(filters), filters)
	}
	if awssdk.ToString(filters[0].Name) != "state" || filters[0].Values[0] != "available" {
		t.Errorf("got %v", filters[0])
	}
	if len(filters[1].Values) != 2 || filters[1].Values[1] != "arm64" {
		t.Errorf("got %v", filters[1])
	}
	if awssdk.ToString(filters[2].Name) != "is-public" || filters[2].Values[0] != "true" {
		t.Errorf("got %v", filters[2])
	}
}

func TestNormalizeFiltersSingleForms(t *testing.T) {
	filters, err := normalizeFilters(map[string]any{"Name": "name", "Values": "al2023-ami-*"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 1 {
		t.Fatalf("got %v", filters)
	}

	filters, err = normalizeFilters("tag:Team=platform")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 1 || awssdk.ToString(filters[0].Name) != "tag:Team" {
		t.Errorf("got %v", filters)
	}
}

func TestNormalizeFiltersSkipsIncompleteEntries(t *testing.T) {
	filters, err := normalizeFilters([]any{
		map[string]any{"Values": []any{"x"}},          // no name
		map[string]any{"Name": "state"},               // no values
		"no-equals-sign",                              // not a k=v form
		map[string]any{"Name": "state", "Values": ""}, // blank values
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 0 {
		t.Errorf("incomplete entries should be skipped, got %v", filters)
	}
}

func TestNormalizeFiltersRejectsUnknownName(t *testing.T) {
	if _, err := normalizeFilters([]any{"instance-id=i-123"}); err == nil {
		t.Error("unknown filter name should be rejected")
	}
	if _, err := normalizeFilters(42); err == nil {
		t.Error("non-filter shapes should be rejected")
	}
}

func TestRedactParams(t *testing.T) {
	in := map[string]any{
		"region":          "us-east-1",
		"aws_secret_key":  "shhh",
		"SessionToken":    "tok",
		"ssh_password":    "pw",
		"credential_file": "/tmp/creds",
		"instance_id":     "i-1",
	}
	out := redactParams(in)

	if out["region"] != "us-east-1" || out["instance_id"] != "i-1" {
		t.Errorf("non-sensitive keys must pass through: %v", out)
	}
	for _, key := range []string{"aws_secret_key", "SessionToken", "ssh_password", "credential_file"} {
		if out[key] != maskValue {
			t.Errorf("%s should be masked, got %v", key, out[key])
		}
	}
	if in["aws_secret_key"] != "shhh" {
		t.Error("redaction must not mutate the input")
	}
}
