package root

import "github.com/spf13/cobra"

// RootCmd is the onfly command; subpackages attach their commands to it.
var RootCmd = &cobra.Command{
	Use:           "onfly",
	Short:         "Onfly expenses CLI",
	Long:          "Command line interface for the Onfly expenses API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func GetRoot() *cobra.Command {
	return RootCmd
}
