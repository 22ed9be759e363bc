package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/internal/repository"
)

// Store provides a concrete implementation of repository.Store using PostgreSQL.
type Store struct {
	db      DBTX
	dataset string
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a store whose rows are all scoped to dataset.
func NewStore(db DBTX, dataset string) *Store {
	return &Store{db: db, dataset: dataset}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

const insertContactSQL = `
	INSERT INTO contacts (dataset, business_name, phone, website, email, source_query, extracted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (dataset, phone) WHERE phone IS NOT NULL DO NOTHING;
`

// InsertContact relies on the partial unique index on (dataset, phone), so two
// concurrent inserts of the same phone cannot both succeed.
func (s *Store) InsertContact(ctx context.Context, c *entity.Contact) (entity.InsertResult, error) {
	tag, err := s.db.Exec(ctx, insertContactSQL,
		s.dataset,
		c.BusinessName,
		nullable(c.Phone),
		nullable(c.Website),
		nullable(c.Email),
		c.SourceQuery,
		c.ExtractedAt,
	)
	if err != nil {
		return entity.InsertResult{}, fmt.Errorf("insert contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.InsertResult{Duplicate: true}, nil
	}
	return entity.InsertResult{Inserted: true}, nil
}

// BatchInsertContacts looks up all phones of the batch in one query, then inserts
// the remaining records one by one.
func (s *Store) BatchInsertContacts(ctx context.Context, cs []*entity.Contact) (entity.BatchInsertResult, error) {
	var result entity.BatchInsertResult
	if len(cs) == 0 {
		return result, nil
	}

	seen, err := s.existingPhones(ctx, cs)
	if err != nil {
		// The unique index still rejects duplicates, so the batch can proceed.
		slog.Warn("Phone lookup failed, relying on insert conflicts", "error", err)
		seen = map[string]struct{}{}
	}

	for _, c := range cs {
		if c.Phone != "" {
			if _, dup := seen[c.Phone]; dup {
				result.Duplicates++
				continue
			}
		}

		res, err := s.InsertContact(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			slog.Error("Failed to insert contact", "business", c.BusinessName, "error", err)
			result.Failed++
			continue
		}
		if res.Duplicate {
			result.Duplicates++
		} else {
			result.Inserted++
		}
		if c.Phone != "" {
			seen[c.Phone] = struct{}{}
		}
	}
	return result, nil
}

const existingPhonesSQL = `SELECT phone FROM contacts WHERE dataset = $1 AND phone = ANY($2);`

func (s *Store) existingPhones(ctx context.Context, cs []*entity.Contact) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	var phones []string
	for _, c := range cs {
		if c.Phone != "" {
			phones = append(phones, c.Phone)
		}
	}
	if len(phones) == 0 {
		return seen, nil
	}

	rows, err := s.db.Query(ctx, existingPhonesSQL, s.dataset, phones)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, err
		}
		seen[phone] = struct{}{}
	}
	return seen, rows.Err()
}

const eachContactSQL = `
	SELECT business_name, phone, website, email, source_query, extracted_at
	FROM contacts
	WHERE dataset = $1
	ORDER BY id;
`

func (s *Store) EachContact(ctx context.Context, fn func(*entity.Contact) error) error {
	rows, err := s.db.Query(ctx, eachContactSQL, s.dataset)
	if err != nil {
		return fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                     entity.Contact
			phone, website, email *string
			extractedAt           time.Time
		)
		if err := rows.Scan(&c.BusinessName, &phone, &website, &email, &c.SourceQuery, &extractedAt); err != nil {
			return fmt.Errorf("scan contact: %w", err)
		}
		c.Phone, c.Website, c.Email = deref(phone), deref(website), deref(email)
		c.ExtractedAt = extractedAt
		if err := fn(&c); err != nil {
			return err
		}
	}
	return rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
