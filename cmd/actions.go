package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the supported action names",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		for _, name := range newDispatcher(log).Actions() {
			fmt.Println(name)
		}
		for _, name := range newDeployer(log).Actions() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(actionsCmd)
}
