package aws

import (
	"regexp"
	"strings"

	"github.com/bgdnvk/stackpilot/internal/params"
)

var bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

// validateBucketName enforces the S3 virtual-hosted-style naming rules before
// any request is built. Checks run in a fixed order and the first violation
// wins, so error messages stay stable for callers that branch on them.
func validateBucketName(name string) (string, error) {
	if name == "" {
		return "", params.Validationf("S3 bucket name is required")
	}
	if len(name) < 3 || len(name) > 63 {
		return "", params.Validationf("S3 bucket name must be between 3 and 63 characters")
	}
	if strings.ToLower(name) != name {
		return "", params.Validationf("S3 bucket names must use lowercase letters only")
	}
	if strings.Contains(name, ".") {
		return "", params.Validationf("S3 bucket names should not contain periods when using virtual-hosted style URLs")
	}
	if strings.Contains(name, "_") {
		return "", params.Validationf("S3 bucket names cannot include underscores; use hyphens instead")
	}
	if !bucketPattern.MatchString(name) {
		return "", params.Validationf("S3 bucket names may contain only lowercase letters, numbers, and hyphens, and must start and end with a letter or number")
	}
	return name, nil
}

// validEC2FilterPrefixes is the allow-list for EC2 describe filters. A filter
// name passes when it equals a prefix, extends one with a dot, or carries the
// tag: form.
var validEC2FilterPrefixes = []string{
	"architecture",
	"block-device-mapping",
	"description",
	"image-id",
	"image-type",
	"is-public",
	"name",
	"owner-alias",
	"owner-id",
	"platform",
	"root-device-type",
	"state",
	"tag",
	"virtualization-type",
}

func validateEC2Filter(name string) error {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "tag:") {
		return nil
	}
	for _, prefix := range validEC2FilterPrefixes {
		if lower == prefix || strings.HasPrefix(lower, prefix+".") {
			return nil
		}
	}
	return params.Validationf(
		"Unsupported filter name %q for EC2 describe calls. Reference: https://docs.aws.amazon.com/AWSEC2/latest/APIReference/API_DescribeImages.html",
		name,
	)
}
