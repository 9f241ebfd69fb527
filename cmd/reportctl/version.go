package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/garyjia/expense-reports/pkg/utils"
)

// BuildDate is set at build time using ldflags
var BuildDate = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "reportctl")
		fmt.Fprintf(out, "Version:    %s\n", utils.Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
