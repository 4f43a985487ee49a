package cmd

import (
	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [payload]",
	Short: "Deploy a Git repository to AWS",
	Long: `Clone a repository, package it into a zip artifact, and deploy it.

Two workflows are available:

  deploy_lambda_repo  clone, zip, and create a Lambda function from the artifact
  deploy_ec2_repo     clone, zip, stage the artifact in S3, and optionally
                      launch an EC2 instance that bootstraps from it

Example:

  stackpilot deploy '{"action": "deploy_lambda_repo", "params": {
    "repo_url": "https://github.com/acme/handler",
    "function_name": "acme-handler",
    "runtime": "python3.12",
    "handler": "app.handler",
    "role_arn": "arn:aws:iam::123456789012:role/lambda-exec"
  }}'

The cloned checkout and artifact are removed when the command finishes,
whether it succeeds or fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args)
		if err != nil {
			return err
		}

		deployer := newDeployer(newLogger())
		result := deployer.Run(cmd.Context(), payload)
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}
