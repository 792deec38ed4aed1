// Package commands implements the ecourts command line client
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JustJay7/ecourts-fetcher/internal/captcha"
	"github.com/JustJay7/ecourts-fetcher/internal/config"
	"github.com/JustJay7/ecourts-fetcher/internal/courts"
	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/hcservices"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/judgments"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/sci"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

// app carries what every subcommand needs once the root has set up
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	solver captcha.Solver

	asJSON     bool
	solverMode string
	logLevel   string

	hcservicesURL string
	judgmentsURL  string
	sciURL        string
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the full command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "ecourts",
		Short:             "ecourts retrieves case, order, cause list and judgment data from Indian court portals.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&a.asJSON, "json", false, "print results as JSON")
	flags.StringVar(&a.solverMode, "solver", "", "captcha solver: prompt, filedrop, ocr, 2captcha or anticaptcha (default $CAPTCHA_SOLVER)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")
	flags.StringVar(&a.hcservicesURL, "hcservices-url", "", "override the HC Services base URL")
	flags.StringVar(&a.judgmentsURL, "judgments-url", "", "override the judgment search base URL")
	flags.StringVar(&a.sciURL, "sci-url", "", "override the Supreme Court site URL")
	for _, name := range []string{"hcservices-url", "judgments-url", "sci-url"} {
		flags.MarkHidden(name)
	}

	root.AddCommand(
		a.courtsCmd(),
		a.searchCmd(),
		a.partyCmd(),
		a.ordersCmd(),
		a.causeListCmd(),
		a.benchesCmd(),
		a.caseTypesCmd(),
		a.judgmentsCmd(),
		a.sciCmd(),
		a.cleanupCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logger.NewLogger(a.logLevel, "text")
	if err != nil {
		return err
	}
	a.log = log

	if a.solver != nil {
		return nil
	}
	mode := a.solverMode
	if mode == "" {
		mode = cfg.CaptchaSolver
	}
	if mode == "prompt" {
		a.solver = captcha.NewPromptSolver(cmd.InOrStdin(), cmd.ErrOrStderr())
		return nil
	}
	a.solver, err = captcha.New(mode, cfg, log)
	return err
}

func (a *app) court(code string) (models.Court, error) {
	court, ok := courts.Get(code)
	if !ok {
		return models.Court{}, fmt.Errorf("unknown court: %s. Run 'ecourts courts' to list", code)
	}
	return court, nil
}

// Each constructor returns the client and a func releasing its connections

func (a *app) hcservices() (*hcservices.Client, func()) {
	http := transport.New(a.cfg, a.log)
	client := hcservices.New(http, a.solver, a.cfg.CaptchaAttempts, a.log)
	if a.hcservicesURL != "" {
		client.WithBaseURL(a.hcservicesURL)
	}
	return client, func() { http.Close() }
}

func (a *app) judgments() (*judgments.Client, func()) {
	http := transport.New(a.cfg, a.log)
	client := judgments.New(http, a.solver, a.cfg.CaptchaAttempts, a.log)
	if a.judgmentsURL != "" {
		client.WithBaseURL(a.judgmentsURL)
	}
	return client, func() { http.Close() }
}

func (a *app) sci() (*sci.Client, func()) {
	http := transport.New(a.cfg, a.log)
	client := sci.New(http, a.log)
	if a.sciURL != "" {
		client.WithBaseURL(a.sciURL)
	}
	return client, func() { http.Close() }
}

func (a *app) pdfFetcher() (*transport.Client, func()) {
	http := transport.New(a.cfg, a.log)
	return http, func() { http.Close() }
}

// emit prints v as indented JSON when --json is set, otherwise calls render
func (a *app) emit(cmd *cobra.Command, v any, render func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if a.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	render(w)
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func dateString(d *models.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
