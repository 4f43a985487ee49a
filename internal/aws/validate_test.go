package aws

import (
	"strings"
	"testing"
)

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		wantErr string
	}{
		{name: "valid", bucket: "my-app-artifacts-01"},
		{name: "empty", bucket: "", wantErr: "required"},
		{name: "too short", bucket: "ab", wantErr: "between 3 and 63"},
		{name: "too long", bucket: strings.Repeat("a", 64), wantErr: "between 3 and 63"},
		{name: "uppercase", bucket: "MyBucket", wantErr: "lowercase"},
		{name: "periods", bucket: "my.bucket", wantErr: "periods"},
		{name: "underscores", bucket: "my_bucket", wantErr: "underscores"},
		{name: "leading hyphen", bucket: "-bucket", wantErr: "start and end"},
		{name: "trailing hyphen", bucket: "bucket-", wantErr: "start and end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateBucketName(tt.bucket)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.bucket {
					t.Errorf("got %q, want %q", got, tt.bucket)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for %q", tt.bucket)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

// Mixed-case names with both problems report the case violation first; the
// checks are ordered and the first violation wins.
func TestValidateBucketNameCheckOrder(t *testing.T) {
	_, err := validateBucketName("My_Bucket.Name")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "lowercase") {
		t.Errorf("expected the lowercase check to fire first, got %q", err.Error())
	}
}

func TestValidateEC2Filter(t *testing.T) {
	allowed := []string{
		"name",
		"state",
		"architecture",
		"block-device-mapping.volume-type",
		"tag:Environment",
		"Owner-Id", // case-insensitive
	}
	for _, name := range allowed {
		if err := validateEC2Filter(name); err != nil {
			t.Errorf("expected %q to be allowed: %v", name, err)
		}
	}

	denied := []string{"instance-id", "availability-zone", "names", "statement"}
	for _, name := range denied {
		err := validateEC2Filter(name)
		if err == nil {
			t.Errorf("expected %q to be rejected", name)
			continue
		}
		if !strings.Contains(err.Error(), "docs.aws.amazon.com") {
			t.Errorf("rejection for %q should point at the API reference, got %q", name, err.Error())
		}
	}
}
