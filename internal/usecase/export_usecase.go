package usecase

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/internal/repository"
)

// ExportColumns is the header row of a contact export.
var ExportColumns = []string{"Business Name", "Phone", "Website", "Email", "Source Query", "Extracted At"}

var sampleJobFile = []string{
	"# Sample queries - one per line",
	"# Lines starting with # are ignored",
	"",
	"restaurants in Tehran",
	"coffee shops in Tehran",
	"hotels in Tehran",
	"dentists in Tehran",
	"lawyers in Tehran",
}

// ExportContacts writes every stored contact to w as CSV and returns the row count.
func ExportContacts(ctx context.Context, contacts repository.ContactRepository, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	n := 0
	err := contacts.EachContact(ctx, func(c *entity.Contact) error {
		n++
		return cw.Write([]string{
			c.BusinessName,
			c.Phone,
			c.Website,
			c.Email,
			c.SourceQuery,
			c.ExtractedAt.UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return n, fmt.Errorf("export contacts: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("flush csv: %w", err)
	}
	return n, nil
}

// FilterSummary reports what FilterRemaining kept.
type FilterSummary struct {
	Total     int
	Completed int
	Remaining int
}

// FilterRemaining writes the queries that are not completed yet, one per line.
func FilterRemaining(ctx context.Context, progress repository.ProgressRepository, queries []string, w io.Writer) (FilterSummary, error) {
	completed, err := progress.GetCompletedQueries(ctx)
	if err != nil {
		return FilterSummary{}, fmt.Errorf("load completed queries: %w", err)
	}

	bw := bufio.NewWriter(w)
	summary := FilterSummary{Total: len(queries)}
	for _, q := range queries {
		if _, done := completed[q]; done {
			summary.Completed++
			continue
		}
		summary.Remaining++
		if _, err := bw.WriteString(q + "\n"); err != nil {
			return summary, fmt.Errorf("write query: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return summary, fmt.Errorf("flush queries: %w", err)
	}

	slog.Info("Filtered queries",
		"total", summary.Total,
		"completed", summary.Completed,
		"remaining", summary.Remaining,
	)
	return summary, nil
}

// WriteSampleJobFile creates a commented example job file. An existing file is left alone.
func WriteSampleJobFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create sample job file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, line := range sampleJobFile {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write sample job file: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write sample job file: %w", err)
	}
	slog.Info("Sample job file created", "file", path)
	return nil
}
