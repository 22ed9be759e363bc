package usecase

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/contact-scraper/internal/repository"
	"github.com/user/contact-scraper/pkg/metrics"
)

// Job file formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ReconcileSummary describes the queue built from a job file and the stored progress.
type ReconcileSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Retries   int `json:"retries"`
	Pending   int `json:"pending"`
	Queued    int `json:"queued"`
}

// QueueManager owns the ordered sequence of queries for a run.
type QueueManager struct {
	queue      repository.QueueRepository
	progress   repository.ProgressRepository
	maxRetries int
	queries    []string
}

func NewQueueManager(queue repository.QueueRepository, progress repository.ProgressRepository, maxRetries int) *QueueManager {
	return &QueueManager{queue: queue, progress: progress, maxRetries: maxRetries}
}

// FormatForPath picks the job file format from the file extension.
func FormatForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatText
}

// LoadFile reads queries from a job file.
func (m *QueueManager) LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open job file: %w", err)
	}
	defer f.Close()

	queries, err := m.Load(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	slog.Info("Loaded queries", "file", path, "count", len(queries))
	return queries, nil
}

// Load reads queries from r. Later duplicates of a query are dropped.
func (m *QueueManager) Load(r io.Reader, format string) ([]string, error) {
	queries, err := ParseQueries(r, format)
	if err != nil {
		return nil, err
	}
	m.queries = queries
	return queries, nil
}

// ParseQueries decodes a job file. JSON files hold an array of strings; text files hold
// one query per line with blank lines and # comments ignored.
func ParseQueries(r io.Reader, format string) ([]string, error) {
	var raw []string
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json job file: %w", err)
		}
	default:
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw = append(raw, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read job file: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out, nil
}

// Reconcile rebuilds the queue: completed queries are dropped and retryable failures
// go to the front, those from the job file first in file order, then any others the store
// still holds for this dataset.
func (m *QueueManager) Reconcile(ctx context.Context) (ReconcileSummary, error) {
	completed, err := m.progress.GetCompletedQueries(ctx)
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("load completed queries: %w", err)
	}
	failed, err := m.progress.GetFailedQueries(ctx, m.maxRetries)
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("load failed queries: %w", err)
	}

	retryable := make(map[string]struct{}, len(failed))
	for _, q := range failed {
		retryable[q] = struct{}{}
	}

	inFile := make(map[string]struct{}, len(m.queries))
	var retries, pending []string
	summary := ReconcileSummary{Total: len(m.queries)}
	for _, q := range m.queries {
		inFile[q] = struct{}{}
		if _, done := completed[q]; done {
			summary.Completed++
			continue
		}
		if _, retry := retryable[q]; retry {
			retries = append(retries, q)
			continue
		}
		pending = append(pending, q)
	}
	for _, q := range failed {
		if _, ok := inFile[q]; !ok {
			retries = append(retries, q)
		}
	}

	if err := m.queue.Reset(ctx); err != nil {
		return ReconcileSummary{}, fmt.Errorf("reset queue: %w", err)
	}
	if err := m.queue.PushBack(ctx, pending...); err != nil {
		return ReconcileSummary{}, fmt.Errorf("queue pending queries: %w", err)
	}
	if err := m.queue.PushFront(ctx, retries...); err != nil {
		return ReconcileSummary{}, fmt.Errorf("queue retries: %w", err)
	}

	summary.Retries = len(retries)
	summary.Pending = len(pending)
	summary.Queued = len(retries) + len(pending)
	metrics.QueriesInQueue.Set(float64(summary.Queued))

	slog.Info("Queue reconciled",
		"total", summary.Total,
		"completed", summary.Completed,
		"retries", summary.Retries,
		"pending", summary.Pending,
	)
	return summary, nil
}

// Next pops the next query. ok is false once the queue is drained.
func (m *QueueManager) Next(ctx context.Context) (string, bool, error) {
	q, ok, err := m.queue.PopFront(ctx)
	if err != nil {
		return "", false, fmt.Errorf("pop query: %w", err)
	}
	if ok {
		metrics.QueriesInQueue.Dec()
	}
	return q, ok, nil
}

func (m *QueueManager) Remaining(ctx context.Context) (int, error) {
	n, err := m.queue.Size(ctx)
	if err != nil {
		return 0, fmt.Errorf("queue size: %w", err)
	}
	return int(n), nil
}
