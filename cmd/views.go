package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/KaramelBytes/incidentlens/internal/utils"
	"github.com/KaramelBytes/incidentlens/internal/views"
	"github.com/spf13/cobra"
)

var (
	viewsDirFlag  string
	viewsListJSON bool
)

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Inspect the view catalog",
}

var viewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every view a run produces",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if viewsListJSON {
			b, err := utils.PrettyJSON(views.All())
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		}
		w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPOPULATION\tDESCRIPTION")
		for _, d := range views.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Population, d.Description)
		}
		return w.Flush()
	},
}

var viewsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a view written by the last run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, ok := views.Lookup(args[0])
		if !ok {
			return fmt.Errorf("%w: %s (see 'incidentlens views list')", views.ErrUnknownView, args[0])
		}
		dir := viewsDirFlag
		if dir == "" {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			dir = c.ViewsDir
		}
		path := filepath.Join(dir, string(d.ID)+".json")
		b, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s has no document in %s", views.ErrNotComputed, d.ID, dir)
			}
			return fmt.Errorf("read view: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	rootCmd.AddCommand(viewsCmd)
	viewsCmd.AddCommand(viewsListCmd)
	viewsCmd.AddCommand(viewsShowCmd)
	viewsListCmd.Flags().BoolVar(&viewsListJSON, "json", false, "print descriptors as JSON")
	viewsShowCmd.Flags().StringVar(&viewsDirFlag, "dir", "", "views directory (defaults to views_dir from config)")
}
