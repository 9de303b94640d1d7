package media

import (
	"context"
	"sync"
)

// Default concurrency for batch lookups.
const DefaultConcurrency = 5

// Result is the lookup outcome for one song.
type Result struct {
	Song string
	Link Link
	Err  error // Non-nil if the lookup failed
}

// Service resolves playlists with a bounded worker pool.
type Service struct {
	lookup      Lookup
	concurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets the number of concurrent lookups.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a Service.
func NewService(lookup Lookup, opts ...Option) *Service {
	s := &Service{
		lookup:      lookup,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find resolves a single song.
func (s *Service) Find(ctx context.Context, song string) (Link, error) {
	return s.lookup.Find(ctx, song)
}

// FindAll resolves songs concurrently. Results are returned in input
// order; per-song errors are captured in Result.Err rather than failing
// the batch.
func (s *Service) FindAll(ctx context.Context, songs []string) ([]Result, error) {
	if len(songs) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, len(songs))

	type workItem struct {
		index int
		song  string
	}
	workCh := make(chan workItem, len(songs))
	for i, song := range songs {
		workCh <- workItem{index: i, song: song}
	}
	close(workCh)

	workers := min(s.concurrency, len(songs))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workCh {
				if err := ctx.Err(); err != nil {
					results[work.index] = Result{Song: work.song, Err: err}
					continue
				}
				link, err := s.lookup.Find(ctx, work.song)
				results[work.index] = Result{Song: work.song, Link: link, Err: err}
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}
