package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the kolnovel-t version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kolnovel-t version:", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
