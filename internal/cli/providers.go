package cli

import (
	"fmt"

	"github.com/fadilmartias/ai-grader/internal/service"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the available grading providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range service.ProviderNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(providersCmd)
}
