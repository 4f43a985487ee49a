package credentials

import (
	"context"
	"testing"
)

func TestStoreResolveEnvOverrideSkipsMongo(t *testing.T) {
	t.Setenv(OverrideEnv, `{"aws_access_key_id": "AKIAEXAMPLE", "aws_secret_access_key": "secret"}`)

	// The URI is intentionally unreachable; Resolve must not touch it when
	// the override is set.
	store := NewStore(StoreConfig{URI: "mongodb://256.0.0.1:1"})
	set, err := store.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.AccessKeyID != "AKIAEXAMPLE" {
		t.Errorf("got %+v", set)
	}
}

func TestStoreSaveRejectsIncompleteSet(t *testing.T) {
	store := NewStore(StoreConfig{})
	if err := store.Save(context.Background(), Set{AccessKeyID: "only-key"}); err == nil {
		t.Error("save without a secret key must fail")
	}
}

func TestRecordSetFallsBackToAwsFields(t *testing.T) {
	r := record{
		AwsAccessKeyID:     "AKIALEGACY",
		AwsSecretAccessKey: "legacy-secret",
	}
	set := r.set()
	if set.AccessKeyID != "AKIALEGACY" || set.SecretAccessKey != "legacy-secret" {
		t.Errorf("got %+v", set)
	}

	r.AccessKeyID = "AKIANEW"
	if r.set().AccessKeyID != "AKIANEW" {
		t.Error("canonical field should win over the aws_ prefixed one")
	}
}
