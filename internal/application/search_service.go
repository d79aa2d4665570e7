package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// searchCacheSize bounds the number of cached projections.
const searchCacheSize = 256

// SearchStore exposes the read-side queries that feed the search index.
type SearchStore interface {
	ListGames(ctx context.Context, params SearchParams) ([]Game, error)
	// RosterRevision advances on every catalog or roster mutation; cached
	// projections keyed on it go stale after at most one completed mutation.
	RosterRevision(ctx context.Context) (int64, error)
}

// SearchService derives filterable, ordered views over the game catalog.
// Results are a read-side projection: each call takes a consistent snapshot
// and may lag the catalog by at most one completed mutation.
type SearchService struct {
	games  SearchStore
	cache  *lru.Cache[string, []Game]
	logger *slog.Logger
}

// NewSearchService constructs a search service over the given store.
func NewSearchService(games SearchStore, logger *slog.Logger) (*SearchService, error) {
	cache, err := lru.New[string, []Game](searchCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	return &SearchService{
		games:  games,
		cache:  cache,
		logger: defaultLogger(logger),
	}, nil
}

func (s *SearchService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SearchService", operation, attrs...)
}

// Search returns games matching the query and filters, ascending by
// scheduled time with ties broken by game ID.
func (s *SearchService) Search(ctx context.Context, params SearchParams) (games []Game, err error) {
	if s == nil || s.games == nil {
		err = fmt.Errorf("search store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Search", "query", params.Query)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "search failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(games)).InfoContext(ctx, "search completed")
	}()

	revision, err := s.games.RosterRevision(ctx)
	if err != nil {
		return nil, err
	}

	key := searchCacheKey(revision, params)
	if cached, ok := s.cache.Get(key); ok {
		return cloneGames(cached), nil
	}

	listed, err := s.games.ListGames(ctx, params)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, cloneGames(listed))
	return listed, nil
}

func searchCacheKey(revision int64, params SearchParams) string {
	var after, until string
	if params.ScheduledAfter != nil {
		after = params.ScheduledAfter.UTC().Format(time.RFC3339Nano)
	}
	if params.ScheduledUntil != nil {
		until = params.ScheduledUntil.UTC().Format(time.RFC3339Nano)
	}

	builder := strings.Builder{}
	fmt.Fprintf(&builder, "%d|", revision)
	builder.WriteString(strings.ToLower(strings.TrimSpace(params.Query)))
	builder.WriteString("|")
	builder.WriteString(params.Sport)
	builder.WriteString("|")
	builder.WriteString(params.SkillLevel)
	builder.WriteString("|")
	builder.WriteString(after)
	builder.WriteString("|")
	builder.WriteString(until)
	return builder.String()
}

func cloneGames(games []Game) []Game {
	if len(games) == 0 {
		return nil
	}
	out := make([]Game, len(games))
	copy(out, games)
	return out
}
