// Package mcpserver exposes the action dispatcher and the repository-deploy
// workflows as MCP tools, so MCP-speaking hosts get the exact same behavior
// as the CLI entry points: one request in, one JSON result envelope out.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bgdnvk/stackpilot/internal/aws"
	"github.com/bgdnvk/stackpilot/internal/repodeploy"
)

// Runner matches the dispatcher/workflow call shape.
type Runner func(ctx context.Context, raw any) aws.Result

// New builds the MCP server with the aws_deployer and github_deployer tools
// registered.
func New(version string, dispatcher *aws.Dispatcher, deployer *repodeploy.Deployer) *server.MCPServer {
	s := server.NewMCPServer("stackpilot", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Execute approved AWS operations (EC2, S3, Lambda, ECS) and "+
			"repository deployments. Supply an action name and a params object."),
	)

	s.AddTool(
		mcp.NewTool("aws_deployer",
			mcp.WithDescription(fmt.Sprintf(
				"Execute approved AWS operations. Supported actions: %v", dispatcher.Actions())),
			mcp.WithString("action", mcp.Required(), mcp.Description("Catalog action name")),
			mcp.WithObject("params", mcp.Description("Parameters for the action")),
		),
		toolHandler(dispatcher.Dispatch),
	)

	s.AddTool(
		mcp.NewTool("github_deployer",
			mcp.WithDescription(fmt.Sprintf(
				"Clone a Git repository, package it, and deploy it to AWS. Supported actions: %v", deployer.Actions())),
			mcp.WithString("action", mcp.Required(), mcp.Description("deploy_lambda_repo or deploy_ec2_repo")),
			mcp.WithObject("params", mcp.Description("Parameters for the deployment")),
		),
		toolHandler(deployer.Run),
	)

	return s
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func toolHandler(run Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		payload := map[string]any{
			"action": args["action"],
			"params": args["params"],
		}
		result := run(ctx, payload)
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encoding result: %w", err)
		}
		if result.Status == aws.StatusError {
			return mcp.NewToolResultError(string(encoded)), nil
		}
		return mcp.NewToolResultText(string(encoded)), nil
	}
}
