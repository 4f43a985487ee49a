// Package credentials resolves the AWS credential set used to build provider
// clients. Credentials come from an environment override or from a MongoDB
// store; they are treated as a capability token scoped to one client
// construction and are never logged or cached beyond that scope.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMissing is wrapped by every failure to produce a usable credential set.
var ErrMissing = errors.New("AWS credentials are not available")

// Set is the resolved credential material for one invocation.
type Set struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Resolver supplies a credential set per provider-client construction.
type Resolver interface {
	Resolve(ctx context.Context) (Set, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context) (Set, error)

func (f ResolverFunc) Resolve(ctx context.Context) (Set, error) { return f(ctx) }

// OverrideEnv short-circuits the store when set. The value is a JSON object
// with aws_access_key_id / aws_secret_access_key / aws_session_token.
const OverrideEnv = "AWS_CREDENTIALS_OVERRIDE_JSON"

// FromEnvOverride returns the credential set from OverrideEnv, or ok=false
// when the variable is unset. A present but malformed or incomplete override
// is an error rather than a silent fallthrough.
func FromEnvOverride() (Set, bool, error) {
	raw := os.Getenv(OverrideEnv)
	if raw == "" {
		return Set{}, false, nil
	}

	var payload struct {
		AccessKeyID     string `json:"aws_access_key_id"`
		SecretAccessKey string `json:"aws_secret_access_key"`
		SessionToken    string `json:"aws_session_token"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Set{}, false, fmt.Errorf("%w: invalid %s payload", ErrMissing, OverrideEnv)
	}
	if payload.AccessKeyID == "" || payload.SecretAccessKey == "" {
		return Set{}, false, fmt.Errorf("%w: override is missing key or secret", ErrMissing)
	}
	return Set{
		AccessKeyID:     payload.AccessKeyID,
		SecretAccessKey: payload.SecretAccessKey,
		SessionToken:    payload.SessionToken,
	}, true, nil
}
