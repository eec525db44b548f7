package main

import (
	"github.com/justyntemme/kolnovel-t/internal/api"
	"github.com/justyntemme/kolnovel-t/internal/ui"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <chapter-url>",
	Short: "Open a chapter and keep loading the next ones while you scroll",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(ui.Options{ChapterURL: args[0]})
	},
}

var novelCmd = &cobra.Command{
	Use:   "novel <slug|series-url>",
	Short: "Show a novel with the reading state of its chapters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(ui.Options{NovelSlug: api.SlugFromLink(args[0])})
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(novelCmd)
}
