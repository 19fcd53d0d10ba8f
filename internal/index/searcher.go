package index

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Querier answers transcript substring queries.
type Querier interface {
	Query(ctx context.Context, substr string) ([]string, error)
}

// Lister lists every memory id. It answers the empty query.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Fuzzy adapts an index so that Query runs fuzzy matching.
type Fuzzy struct {
	Index *SQLiteIndex
}

func (f Fuzzy) Query(ctx context.Context, pattern string) ([]string, error) {
	return f.Index.QueryFuzzy(ctx, pattern)
}

// Result is what a Searcher delivers for one query.
type Result struct {
	Query string   `json:"query"`
	IDs   []string `json:"ids"`
	Err   error    `json:"-"`
}

// Searcher runs queries for a single caller, such as one search box. Only
// the most recent query is ever delivered: starting a query cancels the one
// before it, and a result that loses the race is dropped.
type Searcher struct {
	index  Querier
	lister Lister
	logger zerolog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSearcher creates a searcher over index. Empty queries list every
// memory via lister instead of hitting the index.
func NewSearcher(index Querier, lister Lister, logger zerolog.Logger) *Searcher {
	return &Searcher{
		index:  index,
		lister: lister,
		logger: logger,
	}
}

// Query resolves text in the background and calls deliver with the result,
// unless a newer Query or Cancel supersedes it first. deliver runs with the
// searcher locked and must not call back into the searcher.
func (s *Searcher) Query(ctx context.Context, text string, deliver func(Result)) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	qctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()

		var ids []string
		var err error
		if text == "" {
			ids, err = s.lister.List(qctx)
		} else {
			ids, err = s.index.Query(qctx, text)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			s.logger.Debug().Str("query", text).Msg("Dropping superseded search result")
			return
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("query", text).Msg("Search failed")
		}
		deliver(Result{Query: text, IDs: ids, Err: err})
	}()
}

// Search runs a query and waits for its result. If another query
// supersedes it, Search returns once ctx is done.
func (s *Searcher) Search(ctx context.Context, text string) Result {
	ch := make(chan Result, 1)
	s.Query(ctx, text, func(r Result) { ch <- r })
	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		return Result{Query: text, Err: ctx.Err()}
	}
}

// Cancel abandons the outstanding query, if any, without delivering it.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Wait blocks until every started query has finished or been dropped.
func (s *Searcher) Wait() {
	s.wg.Wait()
}
