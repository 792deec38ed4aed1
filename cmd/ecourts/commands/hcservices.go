package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/hcservices"
)

type caseFlags struct {
	bench      string
	caseType   string
	caseNumber string
	year       string
}

func (f *caseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bench, "bench", "", "bench code from 'ecourts benches' (default principal bench)")
	cmd.Flags().StringVar(&f.caseType, "case-type", "", "case type code from 'ecourts case-types', e.g. 134")
	cmd.Flags().StringVar(&f.caseNumber, "case-number", "", "case number")
	cmd.Flags().StringVar(&f.year, "year", "", "registration year")
	cmd.MarkFlagRequired("case-type")
	cmd.MarkFlagRequired("case-number")
	cmd.MarkFlagRequired("year")
}

func (f *caseFlags) query() hcservices.CaseQuery {
	return hcservices.CaseQuery{
		Bench:      f.bench,
		CaseType:   f.caseType,
		CaseNumber: f.caseNumber,
		Year:       f.year,
	}
}

func renderCases(w io.Writer, cases []models.CaseInfo) {
	if len(cases) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Case Number", "CNR", "Parties", "Status", "Registered"})
	for _, c := range cases {
		t.AppendRow(table.Row{
			c.CaseNumber,
			c.CNRNumber,
			c.Petitioner + " vs " + c.Respondent,
			c.Status,
			dateString(c.RegistrationDate),
		})
	}
	t.Render()
}

func (a *app) searchCmd() *cobra.Command {
	var f caseFlags
	cmd := &cobra.Command{
		Use:   "search COURT",
		Short: "Searches case status on HC Services by case number.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			court, err := a.court(args[0])
			if err != nil {
				return err
			}
			client, done := a.hcservices()
			defer done()

			cases, err := client.CaseStatus(cmd.Context(), court, f.query())
			if err != nil {
				return err
			}
			return a.emit(cmd, cases, func(w io.Writer) { renderCases(w, cases) })
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) partyCmd() *cobra.Command {
	var q hcservices.PartyQuery
	cmd := &cobra.Command{
		Use:   "party COURT",
		Short: "Searches case status on HC Services by party name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			court, err := a.court(args[0])
			if err != nil {
				return err
			}
			client, done := a.hcservices()
			defer done()

			cases, err := client.CaseStatusByParty(cmd.Context(), court, q)
			if err != nil {
				return err
			}
			return a.emit(cmd, cases, func(w io.Writer) { renderCases(w, cases) })
		},
	}
	cmd.Flags().StringVar(&q.Bench, "bench", "", "bench code (default principal bench)")
	cmd.Flags().StringVar(&q.PartyName, "name", "", "petitioner or respondent name, at least 3 characters")
	cmd.Flags().StringVar(&q.Year, "year", "", "registration year")
	cmd.Flags().StringVar(&q.StatusFilter, "status", "Both", "Pending, Disposed or Both")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("year")
	return cmd
}

func (a *app) ordersCmd() *cobra.Command {
	var (
		f        caseFlags
		download bool
	)
	cmd := &cobra.Command{
		Use:   "orders COURT",
		Short: "Lists the orders of a case, optionally downloading their PDFs.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			court, err := a.court(args[0])
			if err != nil {
				return err
			}
			client, done := a.hcservices()
			defer done()

			orders, err := client.CourtOrders(cmd.Context(), court, f.query())
			if err != nil {
				return err
			}

			var got scraper.OrderDownloads
			if download {
				http, closeHTTP := a.pdfFetcher()
				defer closeHTTP()
				got, err = scraper.NewPDFDownloader(http, a.log, a.cfg.PDFDir).
					DownloadOrders(cmd.Context(), f.caseNumber, orders, true)
				if err != nil {
					return err
				}
			}

			out := struct {
				Orders   []models.CaseOrder        `json:"orders"`
				Files    []string                  `json:"files,omitempty"`
				Failures []scraper.DownloadFailure `json:"failures,omitempty"`
			}{orders, got.Paths, got.Failures}

			return a.emit(cmd, out, func(w io.Writer) {
				if len(orders) == 0 {
					fmt.Fprintln(w, "No orders found.")
					return
				}
				t := newTable(w)
				header := table.Row{"Date", "Type", "Judge", "PDF"}
				if download {
					header = append(header, "Saved To")
				}
				t.AppendHeader(header)
				failed := map[int]string{}
				for _, fail := range got.Failures {
					failed[fail.Index] = "failed: " + fail.Error
				}
				for i, o := range orders {
					row := table.Row{o.OrderDate.String(), o.OrderType, o.Judge, o.PDFURL}
					if download {
						saved := got.Paths[i]
						if msg, ok := failed[i]; ok {
							saved = msg
						}
						row = append(row, saved)
					}
					t.AppendRow(row)
				}
				t.Render()
				if download {
					fmt.Fprintf(w, "Saved %d of %d PDFs, %d failed\n", got.Saved(), len(orders), len(got.Failures))
				}
			})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&download, "download", false, "save order PDFs under $PDF_DIR/pdfs")
	return cmd
}

func (a *app) causeListCmd() *cobra.Command {
	var (
		bench    string
		date     string
		criminal bool
	)
	cmd := &cobra.Command{
		Use:   "cause-list COURT",
		Short: "Lists cause list PDFs for a day.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			court, err := a.court(args[0])
			if err != nil {
				return err
			}
			q := hcservices.CauseListQuery{Bench: bench, Criminal: criminal}
			if date != "" {
				q.Date, err = time.Parse(scraper.PortalDateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want DD-MM-YYYY", date)
				}
			}

			client, done := a.hcservices()
			defer done()

			pdfs, err := client.CauseList(cmd.Context(), court, q)
			if err != nil {
				return err
			}
			return a.emit(cmd, pdfs, func(w io.Writer) {
				if len(pdfs) == 0 {
					fmt.Fprintln(w, "No cause list PDFs found.")
					return
				}
				t := newTable(w)
				t.AppendHeader(table.Row{"#", "Bench", "Type", "PDF"})
				for _, p := range pdfs {
					t.AppendRow(table.Row{p.SerialNumber, p.Bench, p.CauseListType, p.PDFURL})
				}
				t.Render()
			})
		},
	}
	cmd.Flags().StringVar(&bench, "bench", "", "bench code (default principal bench)")
	cmd.Flags().StringVar(&date, "date", "", "date as DD-MM-YYYY (default today)")
	cmd.Flags().BoolVar(&criminal, "criminal", false, "criminal cause list (default civil)")
	return cmd
}

func renderOptions(w io.Writer, options []models.Option) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Code", "Name"})
	for _, o := range options {
		t.AppendRow(table.Row{o.Code, o.Name})
	}
	t.Render()
}

func (a *app) benchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "benches COURT",
		Short: "Lists the benches of a High Court.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			court, err := a.court(args[0])
			if err != nil {
				return err
			}
			client, done := a.hcservices()
			defer done()

			options, err := client.ListBenches(cmd.Context(), court)
			if err != nil {
				return err
			}
			return a.emit(cmd, options, func(w io.Writer) { renderOptions(w, options) })
		},
	}
}

func (a *app) caseTypesCmd() *cobra.Command {
	var bench string
	cmd := &cobra.Command{
		Use:   "case-types COURT",
		Short: "Lists the case type codes accepted by a bench.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			court, err := a.court(args[0])
			if err != nil {
				return err
			}
			client, done := a.hcservices()
			defer done()

			options, err := client.ListCaseTypes(cmd.Context(), court, bench)
			if err != nil {
				return err
			}
			return a.emit(cmd, options, func(w io.Writer) { renderOptions(w, options) })
		},
	}
	cmd.Flags().StringVar(&bench, "bench", hcservices.DefaultBench, "bench code")
	return cmd
}
