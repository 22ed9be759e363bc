package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/internal/repository"
)

const markInProgressSQL = `
	INSERT INTO query_progress (dataset, query, status, started_at, updated_at)
	VALUES ($1, $2, 'in_progress', now(), now())
	ON CONFLICT (dataset, query) DO UPDATE SET
		status = 'in_progress',
		started_at = now(),
		updated_at = now();
`

func (s *Store) MarkQueryInProgress(ctx context.Context, query string) error {
	if _, err := s.db.Exec(ctx, markInProgressSQL, s.dataset, query); err != nil {
		return fmt.Errorf("mark query in progress: %w", err)
	}
	return nil
}

const markCompletedSQL = `
	INSERT INTO query_progress (dataset, query, status, results_found, contacts_extracted, completed_at, updated_at)
	VALUES ($1, $2, 'completed', $3, $4, now(), now())
	ON CONFLICT (dataset, query) DO UPDATE SET
		status = 'completed',
		results_found = EXCLUDED.results_found,
		contacts_extracted = EXCLUDED.contacts_extracted,
		error = NULL,
		completed_at = now(),
		updated_at = now();
`

func (s *Store) MarkQueryCompleted(ctx context.Context, query string, result entity.QueryResult) error {
	if _, err := s.db.Exec(ctx, markCompletedSQL, s.dataset, query, result.ResultsFound, result.ContactsExtracted); err != nil {
		return fmt.Errorf("mark query completed: %w", err)
	}
	return nil
}

const markFailedSQL = `
	INSERT INTO query_progress (dataset, query, status, error, retry_count, failed_at, first_failed_at, updated_at)
	VALUES ($1, $2, 'failed', $3, 1, now(), now(), now())
	ON CONFLICT (dataset, query) DO UPDATE SET
		status = 'failed',
		error = EXCLUDED.error,
		retry_count = query_progress.retry_count + 1,
		failed_at = now(),
		first_failed_at = COALESCE(query_progress.first_failed_at, now()),
		updated_at = now();
`

func (s *Store) MarkQueryFailed(ctx context.Context, query string, reason string) error {
	if _, err := s.db.Exec(ctx, markFailedSQL, s.dataset, query, reason); err != nil {
		return fmt.Errorf("mark query failed: %w", err)
	}
	return nil
}

const completedQueriesSQL = `SELECT query FROM query_progress WHERE dataset = $1 AND status = 'completed';`

func (s *Store) GetCompletedQueries(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.Query(ctx, completedQueriesSQL, s.dataset)
	if err != nil {
		return nil, fmt.Errorf("query completed queries: %w", err)
	}
	defer rows.Close()

	completed := make(map[string]struct{})
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		completed[q] = struct{}{}
	}
	return completed, rows.Err()
}

const failedQueriesSQL = `
	SELECT query FROM query_progress
	WHERE dataset = $1 AND status = 'failed' AND retry_count < $2
	ORDER BY first_failed_at, id;
`

func (s *Store) GetFailedQueries(ctx context.Context, maxRetries int) ([]string, error) {
	rows, err := s.db.Query(ctx, failedQueriesSQL, s.dataset, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("query failed queries: %w", err)
	}
	defer rows.Close()

	var failed []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		failed = append(failed, q)
	}
	return failed, rows.Err()
}

const progressSQL = `
	SELECT query, status, retry_count, results_found, contacts_extracted, error,
		started_at, completed_at, failed_at, updated_at
	FROM query_progress
	WHERE dataset = $1 AND query = $2;
`

func (s *Store) GetProgress(ctx context.Context, query string) (*entity.QueryProgress, error) {
	var (
		p      entity.QueryProgress
		status string
		errMsg *string
	)
	err := s.db.QueryRow(ctx, progressSQL, s.dataset, query).Scan(
		&p.Query,
		&status,
		&p.RetryCount,
		&p.ResultsFound,
		&p.ContactsExtracted,
		&errMsg,
		&p.StartedAt,
		&p.CompletedAt,
		&p.FailedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p.Status = entity.QueryStatus(status)
	p.Error = deref(errMsg)
	return &p, nil
}

const (
	contactCountSQL = `SELECT count(*) FROM contacts WHERE dataset = $1;`
	statusCountsSQL = `
		SELECT
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'failed'),
			count(*) FILTER (WHERE status = 'in_progress')
		FROM query_progress
		WHERE dataset = $1;
	`
	topQueriesSQL = `
		SELECT source_query, count(*) AS contacts
		FROM contacts
		WHERE dataset = $1
		GROUP BY source_query
		ORDER BY contacts DESC, source_query
		LIMIT $2;
	`
)

func (s *Store) GetStats(ctx context.Context, topN int) (entity.StoreStats, error) {
	var stats entity.StoreStats

	if err := s.db.QueryRow(ctx, contactCountSQL, s.dataset).Scan(&stats.TotalContacts); err != nil {
		return stats, fmt.Errorf("count contacts: %w", err)
	}
	if err := s.db.QueryRow(ctx, statusCountsSQL, s.dataset).Scan(&stats.Completed, &stats.Failed, &stats.InProgress); err != nil {
		return stats, fmt.Errorf("count queries: %w", err)
	}
	if topN <= 0 {
		return stats, nil
	}

	rows, err := s.db.Query(ctx, topQueriesSQL, s.dataset, topN)
	if err != nil {
		return stats, fmt.Errorf("top queries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var qc entity.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Contacts); err != nil {
			return stats, err
		}
		stats.TopQueries = append(stats.TopQueries, qc)
	}
	return stats, rows.Err()
}
