package repodeploy

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bgdnvk/stackpilot/internal/aws"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingRunner captures every dispatched payload and plays back scripted
// results per action.
type recordingRunner struct {
	payloads []map[string]any
	results  map[string]aws.Result
}

func (r *recordingRunner) Dispatch(ctx context.Context, raw any) aws.Result {
	payload := raw.(map[string]any)
	r.payloads = append(r.payloads, payload)
	action, _ := payload["action"].(string)
	if result, ok := r.results[action]; ok {
		return result
	}
	return aws.Result{Status: aws.StatusSuccess, Action: action, Result: map[string]any{}}
}

func (r *recordingRunner) paramsFor(t *testing.T, action string) map[string]any {
	t.Helper()
	for _, payload := range r.payloads {
		if payload["action"] == action {
			return payload["params"].(map[string]any)
		}
	}
	t.Fatalf("no %s dispatch recorded in %v", action, r.payloads)
	return nil
}

// stubClone writes a fake checkout instead of hitting the network. It records
// the destination so tests can assert cleanup.
func stubClone(t *testing.T, files map[string]string, dest *string) func(context.Context, string, string, string) error {
	t.Helper()
	return func(_ context.Context, repoURL, branch, cloneDest string) error {
		if dest != nil {
			*dest = cloneDest
		}
		for name, content := range files {
			path := filepath.Join(cloneDest, name)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return err
			}
		}
		return nil
	}
}

func newTestDeployer(runner *recordingRunner, clone func(context.Context, string, string, string) error) *Deployer {
	d := New(runner, testLogger(), "")
	d.clone = clone
	d.preflight = func(ctx context.Context, repoURL, branch string) error { return nil }
	return d
}

func TestRunUnknownAction(t *testing.T) {
	d := newTestDeployer(&recordingRunner{}, nil)

	result := d.Run(context.Background(), map[string]any{"action": "deploy_mainframe"})
	if result.Status != aws.StatusError {
		t.Fatalf("got %+v", result)
	}
	if !strings.Contains(result.Message, "deploy_lambda_repo") || !strings.Contains(result.Message, "deploy_ec2_repo") {
		t.Errorf("got message %q", result.Message)
	}
}

func TestRunMissingAction(t *testing.T) {
	d := newTestDeployer(&recordingRunner{}, nil)

	result := d.Run(context.Background(), map[string]any{"params": map[string]any{}})
	if result.Status != aws.StatusError {
		t.Fatalf("got %+v", result)
	}
	if !strings.Contains(result.Message, "'action' field is required") {
		t.Errorf("got message %q", result.Message)
	}
}

func TestDeployLambdaRepoRequiredFields(t *testing.T) {
	runner := &recordingRunner{}
	d := newTestDeployer(runner, nil)

	result := d.Run(context.Background(), map[string]any{
		"action": "deploy_lambda_repo",
		"params": map[string]any{"repo_url": "https://github.com/acme/app"},
	})
	if result.Status != aws.StatusError {
		t.Fatalf("got %+v", result)
	}
	if !strings.Contains(result.Message, "'function_name', 'handler', 'runtime', and 'role_arn' are required") {
		t.Errorf("got message %q", result.Message)
	}
	if len(runner.payloads) != 0 {
		t.Error("invalid requests must not dispatch downstream actions")
	}
}

func TestDeployLambdaRepo(t *testing.T) {
	runner := &recordingRunner{results: map[string]aws.Result{
		"deploy_lambda": {
			Status: aws.StatusSuccess,
			Result: map[string]any{"function_arn": "arn:aws:lambda:fn"},
		},
	}}
	var cloneDest string
	d := newTestDeployer(runner, stubClone(t, map[string]string{
		"app.py":           "def handler(event, context): ...",
		"lib/util.py":      "X = 1",
		".git/config.file": "not packaged meaningfully",
	}, &cloneDest))

	result := d.Run(context.Background(), map[string]any{
		"action": "deploy_lambda_repo",
		"params": map[string]any{
			"repo_url":      "https://github.com/acme/app",
			"function_name": "acme-app",
			"handler":       "app.handler",
			"runtime":       "python3.12",
			"role_arn":      "arn:aws:iam::1:role/lambda",
			"region":        "eu-west-1",
			"environment":   map[string]any{"STAGE": "prod"},
		},
	})
	if result.Status != aws.StatusSuccess {
		t.Fatalf("got %+v", result)
	}

	deployParams := runner.paramsFor(t, "deploy_lambda")
	if deployParams["function_name"] != "acme-app" || deployParams["region"] != "eu-west-1" {
		t.Errorf("got %v", deployParams)
	}
	zipFile, _ := deployParams["zip_file"].(string)
	if zipFile == "" {
		t.Fatal("deploy_lambda should receive the artifact path")
	}
	if deployParams["environment"].(map[string]any)["STAGE"] != "prod" {
		t.Errorf("environment not forwarded: %v", deployParams)
	}

	summary, _ := result.Result["summary"].(string)
	if !strings.Contains(summary, "acme-app") || !strings.Contains(summary, "eu-west-1") {
		t.Errorf("got summary %q", summary)
	}
	if result.Result["artifact_size"].(int64) <= 0 {
		t.Errorf("got %v", result.Result)
	}

	// The checkout, artifact included, is gone after the workflow returns.
	workDir := filepath.Dir(cloneDest)
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Errorf("workspace %s should be removed, stat err=%v", workDir, err)
	}
	if _, err := os.Stat(zipFile); !os.IsNotExist(err) {
		t.Errorf("artifact %s should be removed, stat err=%v", zipFile, err)
	}
}

func TestDeployLambdaRepoCleansUpOnFailure(t *testing.T) {
	runner := &recordingRunner{results: map[string]aws.Result{
		"deploy_lambda": {Status: aws.StatusError, Message: "provider error: AccessDenied"},
	}}
	var cloneDest string
	d := newTestDeployer(runner, stubClone(t, map[string]string{"app.py": "x"}, &cloneDest))

	result := d.Run(context.Background(), map[string]any{
		"action": "deploy_lambda_repo",
		"params": map[string]any{
			"repo_url":      "https://github.com/acme/app",
			"function_name": "fn",
			"handler":       "app.handler",
			"runtime":       "python3.12",
			"role_arn":      "arn:role",
		},
	})
	if result.Status != aws.StatusError {
		t.Fatalf("got %+v", result)
	}
	if result.Message != "provider error: AccessDenied" {
		t.Errorf("downstream message should surface verbatim, got %q", result.Message)
	}
	if _, err := os.Stat(filepath.Dir(cloneDest)); !os.IsNotExist(err) {
		t.Error("workspace should be removed on failure too")
	}
}

func TestDeployLambdaRepoMissingSubdir(t *testing.T) {
	d := newTestDeployer(&recordingRunner{}, stubClone(t, map[string]string{"app.py": "x"}, nil))

	result := d.Run(context.Background(), map[string]any{
		"action": "deploy_lambda_repo",
		"params": map[string]any{
			"repo_url":      "https://github.com/acme/app",
			"function_name": "fn",
			"handler":       "app.handler",
			"runtime":       "python3.12",
			"role_arn":      "arn:role",
			"lambda_subdir": "services/missing",
		},
	})
	if result.Status != aws.StatusError {
		t.Fatalf("got %+v", result)
	}
	if !strings.Contains(result.Message, "'services/missing' not found in repository") {
		t.Errorf("got message %q", result.Message)
	}
}

func TestDeployLambdaRepoCloneFailure(t *testing.T) {
	d := newTestDeployer(&recordingRunner{}, func(_ context.Context, _, _, _ string) error {
		return io.ErrUnexpectedEOF
	})

	result := d.Run(context.Background(), map[string]any{
		"action": "deploy_lambda_repo",
		"params": map[string]any{
			"repo_url":      "https://github.com/acme/app",
			"function_name": "fn",
			"handler":       "app.handler",
			"runtime":       "python3.12",
			"role_arn":      "arn:role",
		},
	})
	if result.Status != aws.StatusError {
		t.Fatalf("got %+v", result)
	}
	if !strings.Contains(result.Message, "failed to clone repository") {
		t.Errorf("got message %q", result.Message)
	}
}

func TestDeployEC2RepoUploadOnly(t *testing.T) {
	runner := &recordingRunner{}
	d := newTestDeployer(runner, stubClone(t, map[string]string{"index.js": "x"}, nil))

	result := d.Run(context.Background(), map[string]any{
		"action": "deploy_ec2_repo",
		"params": map[string]any{
			"repo_url":    "https://github.com/acme/web",
			"bucket_name": "deploy-bucket",
			"object_name": "web.zip",
		},
	})
	if result.Status != aws.StatusSuccess {
		t.Fatalf("got %+v", result)
	}

	uploadParams := runner.paramsFor(t, "upload_s3")
	if uploadParams["bucket_name"] != "deploy-bucket" || uploadParams["object_name"] != "web.zip" {
		t.Errorf("got %v", uploadParams)
	}
	if uploadParams["region"] != "us-east-1" {
		t.Errorf("region should default to us-east-1, got %v", uploadParams["region"])
	}
	if len(runner.payloads) != 1 {
		t.Errorf("no launch was requested, got dispatches %v", runner.payloads)
	}
	if launch, _ := result.Result["ec2_launch"].(map[string]any); len(launch) != 0 {
		t.Errorf("got %v", launch)
	}

	hint, _ := result.Result["user_data_hint"].(string)
	if !strings.Contains(hint, "s3://deploy-bucket/web.zip") {
		t.Errorf("got hint %q", hint)
	}
}

func TestDeployEC2RepoWithLaunch(t *testing.T) {
	runner := &recordingRunner{results: map[string]aws.Result{
		"launch_ec2": {
			Status: aws.StatusSuccess,
			Result: map[string]any{"instance_ids": []any{"i-0abc"}},
		},
	}}
	d := newTestDeployer(runner, stubClone(t, map[string]string{"index.js": "x"}, nil))

	result := d.Run(context.Background(), map[string]any{
		"action": "deploy_ec2_repo",
		"params": map[string]any{
			"repo_url":        "https://github.com/acme/web",
			"bucket_name":     "deploy-bucket",
			"object_name":     "web.zip",
			"launch_instance": true,
			"ami_id":          "ami-123",
			"instance_type":   "t3.micro",
			"key_name":        "deploy-key",
			"tags":            map[string]any{"Name": "web"},
		},
	})
	if result.Status != aws.StatusSuccess {
		t.Fatalf("got %+v", result)
	}

	launchParams := runner.paramsFor(t, "launch_ec2")
	if launchParams["ami_id"] != "ami-123" || launchParams["key_name"] != "deploy-key" {
		t.Errorf("got %v", launchParams)
	}
	for _, excluded := range []string{"repo_url", "bucket_name", "object_name", "launch_instance"} {
		if _, ok := launchParams[excluded]; ok {
			t.Errorf("%s must not leak into launch params", excluded)
		}
	}
	userData, _ := launchParams["user_data"].(string)
	if !strings.Contains(userData, "aws s3 cp s3://deploy-bucket/web.zip") {
		t.Errorf("default bootstrap should fetch the staged artifact, got %q", userData)
	}

	summary, _ := result.Result["summary"].(string)
	if !strings.Contains(summary, "i-0abc") {
		t.Errorf("got summary %q", summary)
	}
}

func TestDeployEC2RepoLaunchRequiresInstanceFields(t *testing.T) {
	runner := &recordingRunner{}
	d := newTestDeployer(runner, stubClone(t, map[string]string{"index.js": "x"}, nil))

	result := d.Run(context.Background(), map[string]any{
		"action": "deploy_ec2_repo",
		"params": map[string]any{
			"repo_url":        "https://github.com/acme/web",
			"bucket_name":     "deploy-bucket",
			"launch_instance": true,
			"ami_id":          "ami-123",
		},
	})
	if result.Status != aws.StatusError {
		t.Fatalf("got %+v", result)
	}
	if !strings.Contains(result.Message, "'ami_id', 'instance_type', and 'key_name' are required") {
		t.Errorf("got message %q", result.Message)
	}
}

func TestZipDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"src/main.go":          "package main",
		"src/nested/helper.go": "package nested",
		"README.md":            "# app",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	zipPath, err := zipDirectory(dir, filepath.Join(t.TempDir(), "out.zip"))
	if err != nil {
		t.Fatal(err)
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	found := map[string]bool{}
	for _, f := range reader.File {
		found[f.Name] = true
	}
	for name := range files {
		if !found[name] {
			t.Errorf("%s missing from archive, have %v", name, found)
		}
	}
}

func TestGenerateArtifactName(t *testing.T) {
	name := generateArtifactName("my-app")
	if !strings.HasPrefix(name, "my-app-") || !strings.HasSuffix(name, ".zip") {
		t.Errorf("got %q", name)
	}
	if name := generateArtifactName(""); !strings.HasPrefix(name, "artifact-") {
		t.Errorf("got %q", name)
	}
	if name := generateArtifactName("."); !strings.HasPrefix(name, "artifact-") {
		t.Errorf("got %q", name)
	}
}

func TestDefaultUserData(t *testing.T) {
	script := defaultUserData("bkt", "obj.zip", "")
	if !strings.HasPrefix(script, "#!/bin/bash") {
		t.Errorf("got %q", script)
	}
	for _, want := range []string{"yum install -y unzip awscli", "aws s3 cp s3://bkt/obj.zip", "unzip -o", "/opt/app"} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}

	custom := defaultUserData("bkt", "obj.zip", "/srv/web")
	if !strings.Contains(custom, "mkdir -p /srv/web") {
		t.Errorf("got %q", custom)
	}
}

func TestParseGitHubRepo(t *testing.T) {
	tests := []struct {
		url   string
		owner string
		repo  string
		ok    bool
	}{
		{"https://github.com/acme/app", "acme", "app", true},
		{"https://github.com/acme/app.git", "acme", "app", true},
		{"git@github.com:acme/app.git", "acme", "app", true},
		{"https://gitlab.com/acme/app", "", "", false},
		{"https://github.com/acme", "", "", false},
		{"git@github.com:broken", "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := parseGitHubRepo(tt.url)
		if owner != tt.owner || repo != tt.repo || ok != tt.ok {
			t.Errorf("parseGitHubRepo(%q) = %q, %q, %v", tt.url, owner, repo, ok)
		}
	}
}
