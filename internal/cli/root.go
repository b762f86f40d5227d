package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "gradectl",
	Version: Version,
	Short:   "Grade PDF submissions against a point-valued rubric",
	Long: `gradectl runs the same grading core as the HTTP server from the command line.
Provider credentials are read from the environment or a local .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

// Execute is called by main.main().
func Execute() error {
	return RootCmd.Execute()
}
