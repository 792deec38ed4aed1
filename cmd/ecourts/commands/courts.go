package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JustJay7/ecourts-fetcher/internal/courts"
	"github.com/JustJay7/ecourts-fetcher/internal/models"
)

func (a *app) courtsCmd() *cobra.Command {
	var courtType string
	cmd := &cobra.Command{
		Use:   "courts",
		Short: "Lists the courts known to the registry.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var want models.CourtType
			switch courtType {
			case "all":
			case "hc":
				want = models.HighCourt
			case "sc":
				want = models.SupremeCourt
			default:
				return fmt.Errorf("invalid --type %q: want all, hc or sc", courtType)
			}

			list := []models.Court{}
			for _, c := range courts.All() {
				if want == "" || c.Type == want {
					list = append(list, c)
				}
			}

			return a.emit(cmd, list, func(w io.Writer) {
				t := newTable(w)
				t.AppendHeader(table.Row{"Code", "Name", "State Code", "Type"})
				for _, c := range list {
					t.AppendRow(table.Row{c.Code, c.Name, c.StateCode, c.Type})
				}
				t.Render()
			})
		},
	}
	cmd.Flags().StringVar(&courtType, "type", "all", "all, hc or sc")
	return cmd
}
