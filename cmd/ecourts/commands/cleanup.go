package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
)

func (a *app) cleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Removes downloaded PDFs older than --days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 0 {
				return fmt.Errorf("invalid --days %d", days)
			}
			removed, err := scraper.NewPDFDownloader(nil, a.log, a.cfg.PDFDir).CleanupOld(days)
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]int{"removed": removed}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %d files\n", removed)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "keep files newer than this many days")
	return cmd
}
