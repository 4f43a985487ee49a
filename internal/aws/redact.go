package aws

import "strings"

// sensitiveKeyTokens flags parameter names that may carry secret material.
// Matched as case-insensitive substrings of the key, not the value.
var sensitiveKeyTokens = []string{"key", "secret", "token", "password", "credential"}

const maskValue = "***"

// redactParams returns a copy of the parameter bag safe for logging:
// credential-shaped keys keep their name but have the value masked.
func redactParams(p map[string]any) map[string]any {
	redacted := make(map[string]any, len(p))
	for key, value := range p {
		lower := strings.ToLower(key)
		masked := false
		for _, token := range sensitiveKeyTokens {
			if strings.Contains(lower, token) {
				masked = true
				break
			}
		}
		if masked {
			redacted[key] = maskValue
		} else {
			redacted[key] = value
		}
	}
	return redacted
}
