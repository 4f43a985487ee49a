package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [payload]",
	Short: "Execute a single AWS action",
	Long: `Execute one action from the catalog and print the JSON result envelope.

The payload is a JSON object with an action name and parameters, passed as an
argument or on stdin:

  stackpilot run '{"action": "list_ec2_instances", "params": {"region": "us-east-1"}}'
  echo '{"action": "create_bucket", "params": {"bucket_name": "my-artifacts"}}' | stackpilot run

Destructive actions such as terminate_ec2 require "confirm": true in params.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args)
		if err != nil {
			return err
		}

		dispatcher := newDispatcher(newLogger())
		result := dispatcher.Dispatch(cmd.Context(), payload)
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func readPayload(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading payload from stdin: %w", err)
	}
	return string(data), nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
