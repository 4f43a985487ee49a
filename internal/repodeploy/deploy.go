// Package repodeploy implements the composite deploy-from-repository
// workflows: clone a Git repository, package it into a zip artifact, and push
// it to Lambda or stage it in S3 for an EC2 launch. Every cloud operation
// goes through the action dispatcher so its guardrails apply, and the cloned
// checkout plus artifact are deleted on every exit path.
package repodeploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bgdnvk/stackpilot/internal/aws"
	"github.com/bgdnvk/stackpilot/internal/params"
)

// ActionRunner is the dispatcher surface the workflows invoke cloud
// operations through. *aws.Dispatcher satisfies it.
type ActionRunner interface {
	Dispatch(ctx context.Context, raw any) aws.Result
}

// DeployError marks an expected workflow failure (bad input, clone failure,
// a declined or failed downstream action).
type DeployError struct {
	Msg string
}

func (e *DeployError) Error() string { return e.Msg }

func deployErrorf(format string, args ...any) error {
	return &DeployError{Msg: fmt.Sprintf(format, args...)}
}

// Deployer owns the repository-deploy action catalog.
type Deployer struct {
	runner    ActionRunner
	log       *slog.Logger
	clone     func(ctx context.Context, repoURL, branch, dest string) error
	preflight func(ctx context.Context, repoURL, branch string) error
}

// New builds a Deployer. githubToken is optional and only used for the
// repository preflight against the GitHub API.
func New(runner ActionRunner, log *slog.Logger, githubToken string) *Deployer {
	if log == nil {
		log = slog.Default()
	}
	d := &Deployer{
		runner: runner,
		log:    log,
		clone:  gitClone,
	}
	d.preflight = newGitHubPreflight(log, githubToken)
	return d
}

// Actions returns the supported composite action names.
func (d *Deployer) Actions() []string {
	return []string{"deploy_ec2_repo", "deploy_lambda_repo"}
}

// Run executes one composite workflow invocation. Like the dispatcher, it
// never returns a Go error; all failures become error envelopes.
func (d *Deployer) Run(ctx context.Context, raw any) aws.Result {
	payload, err := params.CoercePayload(raw)
	if err != nil {
		d.log.Warn("rejected deploy payload", "error", err)
		return aws.Result{Status: aws.StatusError, Message: err.Error()}
	}
	action, _ := payload["action"].(string)
	if action == "" {
		return aws.Result{Status: aws.StatusError, Message: "an 'action' field is required in the payload"}
	}
	p, err := params.CoerceParams(payload["params"])
	if err != nil {
		d.log.Warn("rejected deploy params", "action", action, "error", err)
		return errorResult(action, err.Error())
	}

	var result map[string]any
	switch action {
	case "deploy_lambda_repo":
		result, err = d.deployLambdaRepo(ctx, p)
	case "deploy_ec2_repo":
		result, err = d.deployEC2Repo(ctx, p)
	default:
		return errorResult(action, fmt.Sprintf(
			"Unsupported repository deployment action %q. Supported actions: %s",
			action, strings.Join(d.Actions(), ", "),
		))
	}
	if err != nil {
		var de *DeployError
		if errors.As(err, &de) {
			d.log.Warn("repository deployment failed", "action", action, "error", err)
			return errorResult(action, de.Msg)
		}
		d.log.Error("repository deployment raised unexpected error", "action", action, "error", err)
		return errorResult(action, fmt.Sprintf("Unexpected error: %v", err))
	}
	return aws.Result{Status: aws.StatusSuccess, Action: action, Result: result}
}

func errorResult(action, message string) aws.Result {
	return aws.Result{Status: aws.StatusError, Action: action, Message: message}
}

func (d *Deployer) deployLambdaRepo(ctx context.Context, p params.Bag) (map[string]any, error) {
	repoURL := p.String("repo_url")
	if repoURL == "" {
		return nil, deployErrorf("'repo_url' is required")
	}
	functionName := p.String("function_name")
	handler := p.String("handler")
	runtime := p.String("runtime")
	roleARN := p.String("role_arn")
	if functionName == "" || handler == "" || runtime == "" || roleARN == "" {
		return nil, deployErrorf("'function_name', 'handler', 'runtime', and 'role_arn' are required for Lambda deployments")
	}
	region := p.String("region")
	if region == "" {
		region = "us-east-1"
	}
	branch := p.String("branch")
	subdir := p.String("lambda_subdir")

	if err := d.preflight(ctx, repoURL, branch); err != nil {
		return nil, err
	}

	checkout, cleanup, err := d.checkout(ctx, repoURL, branch)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	sourcePath, err := resolveSubdir(checkout.repoDir, subdir)
	if err != nil {
		return nil, err
	}
	artifactPath, err := zipDirectory(sourcePath, filepath.Join(checkout.workDir, "artifact.zip"))
	if err != nil {
		return nil, err
	}
	artifactInfo, err := os.Stat(artifactPath)
	if err != nil {
		return nil, err
	}

	deployParams := map[string]any{
		"function_name": functionName,
		"handler":       handler,
		"runtime":       runtime,
		"role_arn":      roleARN,
		"zip_file":      artifactPath,
		"region":        region,
	}
	if description := p.String("description"); description != "" {
		deployParams["description"] = description
	}
	if environment, ok := p["environment"]; ok && environment != nil {
		deployParams["environment"] = environment
	}
	if p.Has("timeout") {
		deployParams["timeout"] = p["timeout"]
	}
	if p.Has("memory_size") {
		deployParams["memory_size"] = p["memory_size"]
	}

	response := d.runner.Dispatch(ctx, map[string]any{"action": "deploy_lambda", "params": deployParams})
	if response.Status != aws.StatusSuccess {
		message := response.Message
		if message == "" {
			message = "Lambda deployment failed"
		}
		return nil, deployErrorf("%s", message)
	}

	summary := fmt.Sprintf("Deployed Lambda function '%s' in %s using repository %s.",
		functionName, region, repoURL)

	return map[string]any{
		"function_name": functionName,
		"runtime":       runtime,
		"repository":    repoURL,
		"branch":        branch,
		"artifact_size": artifactInfo.Size(),
		"aws_response":  response.Result,
		"summary":       summary,
	}, nil
}

func (d *Deployer) deployEC2Repo(ctx context.Context, p params.Bag) (map[string]any, error) {
	repoURL := p.String("repo_url")
	if repoURL == "" {
		return nil, deployErrorf("'repo_url' is required")
	}
	bucketName := p.String("bucket_name")
	if bucketName == "" {
		return nil, deployErrorf("'bucket_name' is required to stage artifacts in S3")
	}
	region := p.String("region")
	if region == "" {
		region = "us-east-1"
	}
	branch := p.String("branch")
	subdir := p.String("artifact_subdir")

	if err := d.preflight(ctx, repoURL, branch); err != nil {
		return nil, err
	}

	checkout, cleanup, err := d.checkout(ctx, repoURL, branch)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	sourcePath, err := resolveSubdir(checkout.repoDir, subdir)
	if err != nil {
		return nil, err
	}
	artifactPath, err := zipDirectory(sourcePath, filepath.Join(checkout.workDir, "artifact.zip"))
	if err != nil {
		return nil, err
	}
	artifactInfo, err := os.Stat(artifactPath)
	if err != nil {
		return nil, err
	}

	objectName := p.String("object_name")
	if objectName == "" {
		objectName = generateArtifactName(filepath.Base(sourcePath))
	}

	uploadResponse := d.runner.Dispatch(ctx, map[string]any{"action": "upload_s3", "params": map[string]any{
		"bucket_name": bucketName,
		"file_path":   artifactPath,
		"object_name": objectName,
		"region":      region,
	}})
	if uploadResponse.Status != aws.StatusSuccess {
		message := uploadResponse.Message
		if message == "" {
			message = "Uploading artifact failed"
		}
		return nil, deployErrorf("%s", message)
	}

	summaryParts := []string{fmt.Sprintf("Uploaded artifact to s3://%s/%s (%d bytes).",
		bucketName, objectName, artifactInfo.Size())}

	userDataHint := p.String("user_data")
	if userDataHint == "" {
		userDataHint = defaultUserData(bucketName, objectName, p.String("artifact_install_path"))
	}

	var launchResult map[string]any
	if p.Bool("launch_instance") {
		launchParams := map[string]any{}
		for key, value := range p {
			switch key {
			case "action", "repo_url", "bucket_name", "object_name", "artifact_subdir", "launch_instance", "branch":
				continue
			}
			launchParams[key] = value
		}
		launchParams["region"] = region

		lp := params.Bag(launchParams)
		if lp.String("ami_id") == "" || lp.String("instance_type") == "" || lp.String("key_name") == "" {
			return nil, deployErrorf("'ami_id', 'instance_type', and 'key_name' are required when launch_instance is true")
		}
		if lp.String("user_data") == "" {
			launchParams["user_data"] = userDataHint
		}

		launchResponse := d.runner.Dispatch(ctx, map[string]any{"action": "launch_ec2", "params": launchParams})
		if launchResponse.Status != aws.StatusSuccess {
			message := launchResponse.Message
			if message == "" {
				message = "Launching EC2 instance failed"
			}
			return nil, deployErrorf("%s", message)
		}
		launchResult = launchResponse.Result

		if ids, ok := launchResult["instance_ids"].([]any); ok && len(ids) > 0 {
			rendered := make([]string, len(ids))
			for i, id := range ids {
				rendered[i] = params.Stringify(id)
			}
			summaryParts = append(summaryParts, fmt.Sprintf("Launched EC2 instance(s) %s in %s.",
				strings.Join(rendered, ", "), region))
		}
	}

	return map[string]any{
		"artifact": map[string]any{
			"bucket":     bucketName,
			"object":     objectName,
			"size_bytes": artifactInfo.Size(),
		},
		"repository":     repoURL,
		"branch":         branch,
		"ec2_launch":     launchResult,
		"user_data_hint": userDataHint,
		"summary":        strings.Join(summaryParts, " "),
	}, nil
}

type checkoutDirs struct {
	workDir string
	repoDir string
}

// checkout clones the repository into a fresh exclusively-owned temp
// directory and returns a cleanup that removes the whole tree, artifact
// included. Cleanup must run on every exit path.
func (d *Deployer) checkout(ctx context.Context, repoURL, branch string) (checkoutDirs, func(), error) {
	workDir, err := os.MkdirTemp("", "stackpilot-repo-")
	if err != nil {
		return checkoutDirs{}, nil, fmt.Errorf("creating workspace: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(workDir); err != nil {
			d.log.Warn("failed to remove deployment workspace", "dir", workDir, "error", err)
		}
	}

	repoDir := filepath.Join(workDir, "repo")
	if err := d.clone(ctx, repoURL, branch, repoDir); err != nil {
		cleanup()
		return checkoutDirs{}, nil, deployErrorf("failed to clone repository: %v", err)
	}
	return checkoutDirs{workDir: workDir, repoDir: repoDir}, cleanup, nil
}

func resolveSubdir(repoDir, subdir string) (string, error) {
	path := repoDir
	if subdir != "" {
		path = filepath.Join(repoDir, subdir)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		if subdir != "" {
			return "", deployErrorf("deployment directory '%s' not found in repository", subdir)
		}
		return "", deployErrorf("repository checkout failed")
	}
	return path, nil
}

func generateArtifactName(base string) string {
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "artifact"
	}
	return fmt.Sprintf("%s-%s.zip", base, time.Now().UTC().Format("20060102150405"))
}

// defaultUserData is the bootstrap script used when the caller launches an
// instance without supplying one: it pulls the staged artifact from S3 and
// unpacks it into the install path.
func defaultUserData(bucket, object, installPath string) string {
	destination := installPath
	if destination == "" {
		destination = "/opt/app"
	}
	return fmt.Sprintf(`#!/bin/bash
set -e
sudo yum update -y
sudo yum install -y unzip awscli
mkdir -p %s
aws s3 cp s3://%s/%s /tmp/deployment.zip
unzip -o /tmp/deployment.zip -d %s
`, destination, bucket, object, destination)
}
