package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

// ErrNotPDF is returned when a download does not look like a PDF document
var ErrNotPDF = errors.New("response is not a pdf")

// Fetcher downloads raw bytes. *transport.Client satisfies it.
type Fetcher interface {
	GetBytes(ctx context.Context, url string, opts ...transport.RequestOption) ([]byte, error)
}

// PDFDownloader handles downloading and storing PDF files
type PDFDownloader struct {
	fetcher  Fetcher
	logger   *logger.Logger
	savePath string
	now      func() time.Time
}

// NewPDFDownloader creates a downloader that stores files under savePath/pdfs
func NewPDFDownloader(fetcher Fetcher, log *logger.Logger, savePath string) *PDFDownloader {
	if log == nil {
		log = logger.Nop()
	}
	return &PDFDownloader{
		fetcher:  fetcher,
		logger:   log,
		savePath: savePath,
		now:      time.Now,
	}
}

// Fetch downloads url and checks for the PDF magic bytes
func (d *PDFDownloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("failed to download: empty url")
	}
	data, err := d.fetcher.GetBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("%PDF")) {
		return nil, ErrNotPDF
	}
	return data, nil
}

// Save writes data to pdfs/YYYY/MM/<name>.pdf and returns the full path
func (d *PDFDownloader) Save(name string, data []byte) (string, error) {
	now := d.now()
	dirPath := filepath.Join(d.savePath, "pdfs",
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()))

	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	fullPath := filepath.Join(dirPath, safeFileName(name)+".pdf")
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return fullPath, nil
}

// DownloadFailure is an order whose PDF could not be fetched
type DownloadFailure struct {
	Index  int    `json:"index"`
	PDFURL string `json:"pdf_url"`
	Error  string `json:"error"`
}

// OrderDownloads reports what DownloadOrders did. Paths[i] is where
// orders[i] was saved, empty when it was not.
type OrderDownloads struct {
	Paths    []string          `json:"files"`
	Failures []DownloadFailure `json:"failures,omitempty"`
}

// Saved counts the orders written to disk
func (r OrderDownloads) Saved() int {
	n := 0
	for _, p := range r.Paths {
		if p != "" {
			n++
		}
	}
	return n
}

// DownloadOrders fetches the PDF of every order that has a link, filling
// PDFBytes in place. A failed fetch is recorded in Failures and the rest
// continue. When save is set the files are also written to disk.
func (d *PDFDownloader) DownloadOrders(ctx context.Context, caseNumber string, orders []models.CaseOrder, save bool) (OrderDownloads, error) {
	result := OrderDownloads{Paths: make([]string, len(orders))}
	for i := range orders {
		order := &orders[i]
		if order.PDFURL == "" {
			continue
		}

		data, err := d.Fetch(ctx, order.PDFURL)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			d.logger.Error("Failed to download PDF", "url", order.PDFURL, "error", err)
			result.Failures = append(result.Failures, DownloadFailure{Index: i, PDFURL: order.PDFURL, Error: err.Error()})
			continue
		}
		order.PDFBytes = data

		if !save {
			continue
		}
		name := fmt.Sprintf("order_%s_%s_%d", caseNumber, strings.ReplaceAll(order.OrderDate.String(), "-", ""), i+1)
		path, err := d.Save(name, data)
		if err != nil {
			return result, err
		}
		result.Paths[i] = path
		d.logger.Info("PDF downloaded successfully", "size", len(data), "path", path)
	}
	return result, nil
}

// CleanupOld removes saved PDFs older than daysToKeep and returns how many
// were removed
func (d *PDFDownloader) CleanupOld(daysToKeep int) (int, error) {
	cutoff := d.now().AddDate(0, 0, -daysToKeep)
	root := filepath.Join(d.savePath, "pdfs")

	removed := 0
	err := filepath.WalkDir(root, func(path string, e os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if e.IsDir() || filepath.Ext(path) != ".pdf" {
			return nil
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				d.logger.Warn("Failed to remove PDF", "path", path, "error", err)
				return nil
			}
			removed++
			d.logger.Info("Removed old PDF", "path", path)
		}
		return nil
	})
	return removed, err
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeFileName(name string) string {
	name = strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "._")
	if name == "" {
		return "document"
	}
	return name
}
