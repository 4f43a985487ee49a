package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bgdnvk/stackpilot/internal/credentials"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage AWS credentials in the stackpilot store",
	Long: `Store and inspect the AWS credentials used for action execution.

Credentials live in MongoDB (see mongodb.* config keys); exactly one record is
active at a time and secret material is never printed back. For development
the store can be bypassed entirely by setting ` + credentials.OverrideEnv + `.`,
}

var (
	storeAccessKey    string
	storeSecretKey    string
	storeSessionToken string
)

var credentialsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Store AWS credentials as the active record",
	RunE: func(cmd *cobra.Command, args []string) error {
		if storeAccessKey == "" || storeSecretKey == "" {
			return fmt.Errorf("both --access-key and --secret-key are required")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		store := newStore()
		defer store.Reset(context.Background())

		err := store.Save(ctx, credentials.Set{
			AccessKeyID:     storeAccessKey,
			SecretAccessKey: storeSecretKey,
			SessionToken:    storeSessionToken,
		})
		if err != nil {
			return err
		}
		fmt.Println("Stored AWS credentials as the active record.")
		return nil
	},
}

var credentialsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether AWS credentials are stored (secrets are never shown)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		store := newStore()
		defer store.Reset(context.Background())

		status, err := store.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

func init() {
	credentialsStoreCmd.Flags().StringVar(&storeAccessKey, "access-key", "", "AWS access key ID")
	credentialsStoreCmd.Flags().StringVar(&storeSecretKey, "secret-key", "", "AWS secret access key")
	credentialsStoreCmd.Flags().StringVar(&storeSessionToken, "session-token", "", "AWS session token (optional)")

	credentialsCmd.AddCommand(credentialsStoreCmd)
	credentialsCmd.AddCommand(credentialsStatusCmd)
	rootCmd.AddCommand(credentialsCmd)
}
