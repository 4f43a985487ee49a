package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/bgdnvk/stackpilot/internal/params"
)

func deployLambda(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	for _, key := range []string{"function_name", "runtime", "role_arn", "handler", "zip_file"} {
		if p.String(key) == "" {
			return nil, params.Validationf("'%s' parameter is required for deploy_lambda", key)
		}
	}

	zipBytes, err := loadFileBytes(p.String("zip_file"))
	if err != nil {
		return nil, err
	}
	environment, err := params.EnsureMap(p["environment"])
	if err != nil {
		return nil, err
	}
	timeout, err := p.Int("timeout", 0)
	if err != nil {
		return nil, err
	}
	memorySize, err := p.Int("memory_size", 0)
	if err != nil {
		return nil, err
	}

	input := &lambda.CreateFunctionInput{
		FunctionName: awssdk.String(p.String("function_name")),
		Runtime:      lambdatypes.Runtime(p.String("runtime")),
		Role:         awssdk.String(p.String("role_arn")),
		Handler:      awssdk.String(p.String("handler")),
		Code:         &lambdatypes.FunctionCode{ZipFile: zipBytes},
		Publish:      p.BoolDefault("publish", true),
	}
	if description := p.String("description"); description != "" {
		input.Description = awssdk.String(description)
	}
	if len(environment) > 0 {
		variables := make(map[string]string, len(environment))
		for key, value := range environment {
			variables[key] = params.Stringify(value)
		}
		input.Environment = &lambdatypes.Environment{Variables: variables}
	}
	if timeout > 0 {
		input.Timeout = awssdk.Int32(int32(timeout))
	}
	if memorySize > 0 {
		input.MemorySize = awssdk.Int32(int32(memorySize))
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.Lambda.CreateFunction(ctx, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"function_arn":  awssdk.ToString(resp.FunctionArn),
		"state":         string(resp.State),
		"last_modified": awssdk.ToString(resp.LastModified),
	}, nil
}

func updateLambdaCode(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	functionName := p.String("function_name")
	if functionName == "" {
		return nil, params.Validationf("'function_name' parameter is required for update_lambda_code")
	}
	zipFile := p.String("zip_file")
	if zipFile == "" {
		return nil, params.Validationf("'zip_file' parameter is required for update_lambda_code")
	}
	zipBytes, err := loadFileBytes(zipFile)
	if err != nil {
		return nil, err
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.Lambda.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: awssdk.String(functionName),
		ZipFile:      zipBytes,
		Publish:      p.Bool("publish"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"function_arn":  awssdk.ToString(resp.FunctionArn),
		"last_modified": awssdk.ToString(resp.LastModified),
	}, nil
}

func invokeLambda(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	functionName := p.String("function_name")
	if functionName == "" {
		return nil, params.Validationf("'function_name' parameter is required for invoke_lambda")
	}

	var payloadBytes []byte
	switch payload := p["payload"].(type) {
	case nil:
		payloadBytes = []byte("{}")
	case string:
		payloadBytes = []byte(payload)
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, params.Validationf("'payload' is not serializable: %v", err)
		}
		payloadBytes = encoded
	}

	invocationType := p.String("invocation_type")
	if invocationType == "" {
		invocationType = "RequestResponse"
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.Lambda.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   awssdk.String(functionName),
		Payload:        payloadBytes,
		InvocationType: lambdatypes.InvocationType(invocationType),
	})
	if err != nil {
		return nil, err
	}

	// Decode the response payload as JSON when possible, raw text otherwise.
	var responsePayload any
	if len(resp.Payload) > 0 {
		var parsed any
		if err := json.Unmarshal(resp.Payload, &parsed); err == nil {
			responsePayload = parsed
		} else {
			responsePayload = string(resp.Payload)
		}
	}
	return map[string]any{
		"status_code":      resp.StatusCode,
		"executed_version": awssdk.ToString(resp.ExecutedVersion),
		"payload":          responsePayload,
	}, nil
}

func loadFileBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s: %w", path, fs.ErrNotExist)
		}
		return nil, err
	}
	return data, nil
}
