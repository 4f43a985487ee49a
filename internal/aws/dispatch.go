// Package aws implements the action catalog that maps conversational
// deployment requests onto EC2, S3, Lambda, and ECS operations. A single
// Dispatcher entry point validates the untyped payload, enforces the
// destructive-action confirmation guardrail, and folds every failure into a
// uniform JSON-friendly result envelope so no error ever escapes to the
// transport layer.
package aws

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/bgdnvk/stackpilot/internal/credentials"
	"github.com/bgdnvk/stackpilot/internal/params"
)

// Result is the envelope returned for every dispatch. Exactly one of Result
// and Message is set, keyed by Status.
type Result struct {
	Status  string         `json:"status"`
	Action  string         `json:"action,omitempty"`
	Result  map[string]any `json:"result,omitempty"`
	Message string         `json:"message,omitempty"`
}

const (
	// StatusSuccess marks a completed handler invocation.
	StatusSuccess = "success"
	// StatusError marks every non-success outcome, including the expected
	// confirmation decline.
	StatusError = "error"
)

type handlerFunc func(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error)

// Dispatcher owns the immutable action catalog. Build one at process start
// and reuse it; every Dispatch call is self-contained.
type Dispatcher struct {
	factory       ClientFactory
	log           *slog.Logger
	defaultRegion string
	catalog       map[string]handlerFunc
	destructive   map[string]struct{}
}

// NewDispatcher wires the catalog. defaultRegion backs requests that omit a
// region; pass "" to require one per request.
func NewDispatcher(factory ClientFactory, log *slog.Logger, defaultRegion string) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		factory:       factory,
		log:           log,
		defaultRegion: defaultRegion,
		destructive:   map[string]struct{}{"terminate_ec2": {}},
	}
	d.catalog = map[string]handlerFunc{
		"launch_ec2":               launchEC2,
		"stop_ec2":                 stopEC2,
		"terminate_ec2":            terminateEC2,
		"list_ec2_instances":       listEC2Instances,
		"create_bucket":            createBucket,
		"describe_images":          describeImages,
		"describe_key_pairs":       describeKeyPairs,
		"upload_s3":                uploadS3,
		"download_s3":              downloadS3,
		"list_s3_objects":          listS3Objects,
		"deploy_lambda":            deployLambda,
		"update_lambda_code":       updateLambdaCode,
		"invoke_lambda":            invokeLambda,
		"create_cluster":           createCluster,
		"register_task_definition": registerTaskDefinition,
		"create_service":           createService,
		"update_service":           updateService,
	}
	return d
}

// Actions returns the sorted catalog keys.
func (d *Dispatcher) Actions() []string {
	names := make([]string, 0, len(d.catalog))
	for name := range d.catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs one action invocation end to end. The raw payload may be a
// map or JSON text shaped as {"action": ..., "params": {...}}. Dispatch never
// returns a Go error; every failure category becomes an error Result.
func (d *Dispatcher) Dispatch(ctx context.Context, raw any) Result {
	payload, err := params.CoercePayload(raw)
	if err != nil {
		d.log.Warn("rejected payload", "error", err)
		return errorResult("", err.Error())
	}

	action, _ := payload["action"].(string)
	if action == "" {
		d.log.Warn("payload missing action field")
		return errorResult("", "an 'action' field is required in the payload")
	}

	p, err := params.CoerceParams(payload["params"])
	if err != nil {
		d.log.Warn("rejected params", "action", action, "error", err)
		return errorResult(action, err.Error())
	}

	handler, ok := d.catalog[action]
	if !ok {
		d.log.Warn("unsupported action requested", "action", action)
		return errorResult(action, fmt.Sprintf(
			"Unsupported action %q. Supported actions: %s",
			action, strings.Join(d.Actions(), ", "),
		))
	}

	if _, destructive := d.destructive[action]; destructive {
		if !p.PopBool("confirm") {
			d.log.Warn("destructive action declined", "action", action)
			return errorResult(action, "Confirmation required for destructive operation. Set 'confirm' to true.")
		}
	}

	d.log.Info("executing action", "action", action, "params", redactParams(p))

	result, err := handler(ctx, d, p)
	if err != nil {
		return d.classify(action, err)
	}
	return Result{Status: StatusSuccess, Action: action, Result: SummarizeMap(result)}
}

// classify maps a handler failure onto the error taxonomy. The returned
// message stays terse; diagnostics go to the log.
func (d *Dispatcher) classify(action string, err error) Result {
	var ve *params.ValidationError
	if errors.As(err, &ve) {
		d.log.Warn("action validation failed", "action", action, "error", err)
		return errorResult(action, ve.Msg)
	}

	if errors.Is(err, credentials.ErrMissing) {
		d.log.Warn("credentials unavailable", "action", action, "error", err)
		return errorResult(action, err.Error())
	}

	var apiErr smithy.APIError
	var opErr *smithy.OperationError
	if errors.As(err, &apiErr) || errors.As(err, &opErr) {
		d.log.Error("provider call failed", "action", action, "error", err)
		return errorResult(action, fmt.Sprintf("provider error: %v", err))
	}

	if errors.Is(err, fs.ErrNotExist) {
		d.log.Error("referenced local file missing", "action", action, "error", err)
		return errorResult(action, err.Error())
	}

	d.log.Error("action raised unexpected error", "action", action, "error", err)
	return errorResult(action, fmt.Sprintf("Unexpected error: %v", err))
}

func errorResult(action, message string) Result {
	return Result{Status: StatusError, Action: action, Message: message}
}

// region resolves the target region from the request or the process-wide
// default, failing validation when neither is set.
func (d *Dispatcher) region(p params.Bag) (string, error) {
	if region := p.String("region"); region != "" {
		return region, nil
	}
	if d.defaultRegion != "" {
		return d.defaultRegion, nil
	}
	return "", params.Validationf("AWS region is required. Set 'region' in the payload or AWS_DEFAULT_REGION in the environment.")
}

// clients resolves the region and builds per-service clients for this
// invocation. Handlers must validate their required fields before calling it
// so bad requests never touch the credential or provider layers.
func (d *Dispatcher) clients(ctx context.Context, p params.Bag) (*Clients, string, error) {
	region, err := d.region(p)
	if err != nil {
		return nil, "", err
	}
	c, err := d.factory(ctx, region)
	if err != nil {
		return nil, "", err
	}
	return c, region, nil
}
