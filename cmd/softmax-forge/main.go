package main

import (
	"os"

	"github.com/spf13/cobra"
)

var mainCmd = &cobra.Command{
	Use:          "softmax-forge",
	Short:        "Train and evaluate a linear softmax classifier",
	SilenceUsage: true,
}

func main() {
	mainCmd.AddCommand(trainCmd())

	if mainCmd.Execute() != nil {
		os.Exit(1)
	}
}
