package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/judgments"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/sci"
)

func renderJudgments(w io.Writer, items []models.JudgmentResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Title", "Case Number", "Date", "Judges", "PDF"})
	for _, j := range items {
		t.AppendRow(table.Row{
			j.Title,
			j.CaseNumber,
			dateString(j.JudgmentDate),
			strings.Join(j.Judges, ", "),
			j.PDFURL,
		})
	}
	t.Render()
}

func (a *app) judgmentsCmd() *cobra.Command {
	var (
		opt       string
		courtType string
		escr      bool
	)
	cmd := &cobra.Command{
		Use:   "judgments TEXT",
		Short: "Full-text search of the eCourts judgment portal.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := judgments.Query{
				Text:      strings.Join(args, " "),
				SearchOpt: strings.ToUpper(opt),
				ESCR:      escr,
			}
			switch courtType {
			case "hc":
				q.CourtType = judgments.CourtTypeHighCourt
			case "scr":
				q.CourtType = judgments.CourtTypeSCR
			default:
				return fmt.Errorf("invalid --court-type %q: want hc or scr", courtType)
			}

			client, done := a.judgments()
			defer done()

			result, err := client.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.emit(cmd, result, func(w io.Writer) {
				if len(result.Items) == 0 {
					fmt.Fprintln(w, "No judgments found.")
					return
				}
				fmt.Fprintf(w, "Found %d judgments (page %d)\n", result.TotalCount, result.Page)
				renderJudgments(w, result.Items)
			})
		},
	}
	cmd.Flags().StringVar(&opt, "opt", judgments.SearchPhrase, "PHRASE, ANY or ALL")
	cmd.Flags().StringVar(&courtType, "court-type", "hc", "hc for High Courts, scr for Supreme Court Reports")
	cmd.Flags().BoolVar(&escr, "escr", false, "restrict to electronic Supreme Court Reports")
	return cmd
}

func (a *app) sciCmd() *cobra.Command {
	var (
		year  int
		month int
		party string
	)
	cmd := &cobra.Command{
		Use:   "sci",
		Short: "Lists Supreme Court judgments by year, month or party.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year == 0 && party == "" {
				return errors.New("one of --year or --party is required")
			}

			client, done := a.sci()
			defer done()

			var (
				items []models.JudgmentResult
				err   error
			)
			if party != "" {
				items, err = client.SearchByParty(cmd.Context(), sci.PartyQuery{Name: party})
			} else {
				items, err = client.SearchByYear(cmd.Context(), year, time.Month(month))
			}
			if err != nil {
				return err
			}
			return a.emit(cmd, items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "No SC judgments found.")
					return
				}
				fmt.Fprintf(w, "Found %d SC judgments\n", len(items))
				renderJudgments(w, items)
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year of judgment")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default whole year)")
	cmd.Flags().StringVar(&party, "party", "", "petitioner or respondent name")
	return cmd
}
