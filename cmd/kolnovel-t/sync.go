package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/justyntemme/kolnovel-t/internal/library"
	"github.com/justyntemme/kolnovel-t/pkg/models"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var flagSyncAll bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Check the library for new chapters",
	Long: "sync compares the chapter count of every novel you are reading with the\n" +
		"site and stores the new count. Use --all to include every status.",
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&flagSyncAll, "all", false, "check every novel, not only the ones being read")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	var novels []models.LibraryNovel
	if flagSyncAll {
		novels, err = e.lib.Novels()
	} else {
		novels, err = e.store.NovelsByStatus(models.StatusReading)
	}
	if err != nil {
		return err
	}
	if len(novels) == 0 {
		fmt.Println("Nothing to check.")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := mpb.NewWithContext(ctx,
		mpb.WithWidth(40),
		mpb.WithOutput(os.Stdout),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	bar := p.New(int64(len(novels)),
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Name("checking  "),
			decor.CountersNoUnit("%d/%d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
		),
	)

	var failed []library.Update
	updates, err := e.lib.CheckNovels(ctx, novels, func(u library.Update) {
		if u.Err != nil {
			failed = append(failed, u)
		}
		bar.Increment()
	})
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	if err != nil {
		return err
	}

	for _, u := range updates {
		fmt.Printf("  %s: %d → %d chapters\n", u.Novel.Name, u.Previous, u.Current)
	}
	for _, u := range failed {
		fmt.Printf("  %s: %v\n", u.Novel.Name, u.Err)
	}
	fmt.Printf("%d of %d novels have updates.\n", len(updates), len(novels))
	return nil
}
