package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/justyntemme/kolnovel-t/internal/api"
	"github.com/justyntemme/kolnovel-t/pkg/models"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var flagAddStatus string

var libraryCmd = &cobra.Command{
	Use:     "library",
	Aliases: []string{"lib"},
	Short:   "Manage the novels saved in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		return libraryListCmd.RunE(cmd, args)
	},
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the library grouped by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		groups, err := e.lib.Groups()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "STATUS\tID\tNAME\tCHAPTERS\tUNREAD")
		for _, g := range groups {
			for _, n := range g.Novels {
				unread, err := e.lib.UnreadCount(n.ID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\n", g.Status.Label(), n.ID, n.Name, n.ChaptersCount, unread)
			}
		}
		if err := w.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
		}
		return nil
	},
}

var libraryAddCmd = &cobra.Command{
	Use:   "add <slug|series-url>",
	Short: "Add a novel to the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, ok := models.ParseStatus(flagAddStatus)
		if !ok {
			return fmt.Errorf("unknown status %q", flagAddStatus)
		}
		slug := api.SlugFromLink(args[0])
		if slug == "" {
			return fmt.Errorf("no novel slug in %q", args[0])
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		n, err := e.lib.AddBySlug(context.Background(), slug, status)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%d chapters) as %s\n", n.Name, n.ChaptersCount, n.Status.Label())
		return nil
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a novel and its reading progress",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		n, err := pickNovel(e, args, "Remove novel")
		if err != nil {
			return err
		}

		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("Remove %s", n.Name),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}

		if err := e.lib.Remove(n.ID); err != nil {
			return err
		}
		fmt.Println("Removed:", n.Name)
		return nil
	},
}

var libraryStatusCmd = &cobra.Command{
	Use:   "status [id] [status]",
	Short: "Move a novel to another status",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		n, err := pickNovel(e, args, "Select novel")
		if err != nil {
			return err
		}

		var status models.NovelStatus
		if len(args) == 2 {
			st, ok := models.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q", args[1])
			}
			status = st
		} else {
			items := make([]string, len(models.Statuses))
			for i, st := range models.Statuses {
				items[i] = st.Label()
			}
			prompt := promptui.Select{
				Label: "Status for " + n.Name,
				Items: items,
			}
			idx, _, err := prompt.Run()
			if err != nil {
				return fmt.Errorf("selection cancelled")
			}
			status = models.Statuses[idx]
		}

		if err := e.lib.SetStatus(n.ID, status); err != nil {
			return err
		}
		fmt.Printf("%s → %s\n", n.Name, status.Label())
		return nil
	},
}

// pickNovel resolves the novel named by args[0], or asks for one
func pickNovel(e *env, args []string, label string) (models.LibraryNovel, error) {
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return models.LibraryNovel{}, fmt.Errorf("invalid novel id %q", args[0])
		}
		n, ok, err := e.lib.Novel(id)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, fmt.Errorf("novel %d is not in the library", id)
		}
		return n, nil
	}

	novels, err := e.lib.Novels()
	if err != nil {
		return models.LibraryNovel{}, err
	}
	if len(novels) == 0 {
		return models.LibraryNovel{}, fmt.Errorf("the library is empty")
	}

	items := make([]string, len(novels))
	for i, n := range novels {
		items[i] = fmt.Sprintf("%s  (%s)", n.Name, n.Status.Label())
	}
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  12,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return models.LibraryNovel{}, fmt.Errorf("selection cancelled")
	}
	return novels[idx], nil
}

func init() {
	libraryAddCmd.Flags().StringVar(&flagAddStatus, "status", string(models.StatusReading), "reading, completed, dropped or planToRead")

	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	libraryCmd.AddCommand(libraryStatusCmd)
	rootCmd.AddCommand(libraryCmd)
}
