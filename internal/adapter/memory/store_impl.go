package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/internal/repository"
)

// Store is an in-process repository.Store. Data lives only as long as the process.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	contacts []entity.Contact
	phones   map[string]struct{}
	progress map[string]*progressRecord
	seq      int
}

type progressRecord struct {
	entity.QueryProgress
	firstFailedSeq int
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		now:      time.Now,
		phones:   make(map[string]struct{}),
		progress: make(map[string]*progressRecord),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) InsertContact(ctx context.Context, c *entity.Contact) (entity.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return entity.InsertResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(c), nil
}

func (s *Store) insertLocked(c *entity.Contact) entity.InsertResult {
	if c.Phone != "" {
		if _, dup := s.phones[c.Phone]; dup {
			return entity.InsertResult{Duplicate: true}
		}
		s.phones[c.Phone] = struct{}{}
	}
	s.contacts = append(s.contacts, *c)
	return entity.InsertResult{Inserted: true}
}

func (s *Store) BatchInsertContacts(ctx context.Context, cs []*entity.Contact) (entity.BatchInsertResult, error) {
	var result entity.BatchInsertResult
	if err := ctx.Err(); err != nil {
		return result, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cs {
		if s.insertLocked(c).Duplicate {
			result.Duplicates++
		} else {
			result.Inserted++
		}
	}
	return result, nil
}

func (s *Store) EachContact(ctx context.Context, fn func(*entity.Contact) error) error {
	s.mu.Lock()
	snapshot := append([]entity.Contact(nil), s.contacts...)
	s.mu.Unlock()

	for i := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) record(query string) *progressRecord {
	rec, ok := s.progress[query]
	if !ok {
		rec = &progressRecord{QueryProgress: entity.QueryProgress{Query: query, Status: entity.QueryPending}}
		s.progress[query] = rec
	}
	return rec
}

func (s *Store) MarkQueryInProgress(ctx context.Context, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := s.record(query)
	rec.Status = entity.QueryInProgress
	rec.StartedAt = &now
	rec.UpdatedAt = now
	return nil
}

func (s *Store) MarkQueryCompleted(ctx context.Context, query string, result entity.QueryResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := s.record(query)
	rec.Status = entity.QueryCompleted
	rec.ResultsFound = result.ResultsFound
	rec.ContactsExtracted = result.ContactsExtracted
	rec.Error = ""
	rec.CompletedAt = &now
	rec.UpdatedAt = now
	return nil
}

func (s *Store) MarkQueryFailed(ctx context.Context, query string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := s.record(query)
	rec.Status = entity.QueryFailed
	rec.Error = reason
	rec.RetryCount++
	rec.FailedAt = &now
	rec.UpdatedAt = now
	if rec.firstFailedSeq == 0 {
		s.seq++
		rec.firstFailedSeq = s.seq
	}
	return nil
}

func (s *Store) GetCompletedQueries(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	completed := make(map[string]struct{})
	for q, rec := range s.progress {
		if rec.Status == entity.QueryCompleted {
			completed[q] = struct{}{}
		}
	}
	return completed, nil
}

func (s *Store) GetFailedQueries(ctx context.Context, maxRetries int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []*progressRecord
	for _, rec := range s.progress {
		if rec.Status == entity.QueryFailed && rec.RetryCount < maxRetries {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].firstFailedSeq < recs[j].firstFailedSeq })

	failed := make([]string, len(recs))
	for i, rec := range recs {
		failed[i] = rec.Query
	}
	return failed, nil
}

func (s *Store) GetProgress(ctx context.Context, query string) (*entity.QueryProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.progress[query]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := rec.QueryProgress
	return &p, nil
}

func (s *Store) GetStats(ctx context.Context, topN int) (entity.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := entity.StoreStats{TotalContacts: len(s.contacts)}
	for _, rec := range s.progress {
		switch rec.Status {
		case entity.QueryCompleted:
			stats.Completed++
		case entity.QueryFailed:
			stats.Failed++
		case entity.QueryInProgress:
			stats.InProgress++
		}
	}
	if topN <= 0 {
		return stats, nil
	}

	counts := make(map[string]int)
	for _, c := range s.contacts {
		counts[c.SourceQuery]++
	}
	for q, n := range counts {
		stats.TopQueries = append(stats.TopQueries, entity.QueryCount{Query: q, Contacts: n})
	}
	sort.Slice(stats.TopQueries, func(i, j int) bool {
		a, b := stats.TopQueries[i], stats.TopQueries[j]
		if a.Contacts != b.Contacts {
			return a.Contacts > b.Contacts
		}
		return a.Query < b.Query
	})
	if len(stats.TopQueries) > topN {
		stats.TopQueries = stats.TopQueries[:topN]
	}
	return stats, nil
}
