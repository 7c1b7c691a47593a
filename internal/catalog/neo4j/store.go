// Package neo4j adapts the event catalog graph database to the retrieval
// engine. All property bags coming back from the driver are converted to
// typed domain records here; untyped maps never leave this package.
package neo4j

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// Store is the graph-backed event catalog.
type Store struct {
	driver     neo4j.DriverWithContext
	database   string
	indexName  string
	vectorProp string
	timeout    time.Duration
	logger     *zap.Logger
}

// Config holds catalog store settings.
type Config struct {
	URI            string
	User           string
	Password       string
	Database       string
	VectorIndex    string
	VectorProperty string
	QueryTimeout   time.Duration
	MaxPoolSize    int
	Logger         *zap.Logger
}

// NewStore connects to the catalog graph database.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		if cfg.MaxPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
		}
		if cfg.QueryTimeout > 0 {
			c.SocketConnectTimeout = cfg.QueryTimeout
		}
	})
	if err != nil {
		return nil, fmt.Errorf("init catalog driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify catalog connectivity: %w", err)
	}

	return &Store{
		driver:     driver,
		database:   cfg.Database,
		indexName:  cfg.VectorIndex,
		vectorProp: cfg.VectorProperty,
		timeout:    cfg.QueryTimeout,
		logger:     cfg.Logger,
	}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// HealthCheck verifies catalog connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("catalog health check: %w", err)
	}
	return nil
}

// EligibleEvents returns the identifiers of events satisfying every set
// filter field. Filters are hard constraints: the caller must treat an
// empty result as "nothing matches", not fall back to unfiltered search.
func (s *Store) EligibleEvents(ctx context.Context, f domain.Filters) ([]string, error) {
	where, params := buildPredicate(f)
	if len(where) == 0 {
		return nil, nil
	}

	cypher := "MATCH (e:Event) WHERE " + strings.Join(where, " AND ") + " RETURN e.uuid AS uuid"

	records, err := s.read(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("eligible events: %w", err)
	}

	uuids := make([]string, 0, len(records))
	for _, rec := range records {
		if id := recordString(rec, "uuid"); id != "" {
			uuids = append(uuids, id)
		}
	}
	return uuids, nil
}

// buildPredicate translates the filters into Cypher WHERE fragments.
func buildPredicate(f domain.Filters) ([]string, map[string]any) {
	var where []string
	params := map[string]any{}

	if f.MaxPrice != nil {
		where = append(where, "e.price <= $max_price")
		params["max_price"] = *f.MaxPrice
	}
	for param, val := range map[string]string{
		"city":     f.City,
		"category": f.Category,
		"genre":    f.Genre,
		"duration": f.Duration,
	} {
		if val == "" {
			continue
		}
		where = append(where, fmt.Sprintf("toLower(e.%s) CONTAINS toLower($%s)", param, param))
		params[param] = val
	}
	if f.DateFrom != "" {
		where = append(where, "e.date >= $date_from")
		params["date_from"] = f.DateFrom
	}
	if f.DateTo != "" {
		where = append(where, "e.date <= $date_to")
		params["date_to"] = f.DateTo
	}

	return where, params
}

// VectorQuery runs an approximate nearest-neighbor lookup over the summary
// vector index. A missing index or any query failure is reported as
// domain.ErrIndexUnavailable so the retriever can fall back to scanning.
func (s *Store) VectorQuery(ctx context.Context, k int, vec []float32) ([]domain.SummaryHit, error) {
	cypher := `CALL db.index.vector.queryNodes($index, $k, $vec)
YIELD node, score
RETURN node.event_uuid AS event_uuid, node.sentiment_summary AS sentiment_summary, score`

	records, err := s.read(ctx, cypher, map[string]any{
		"index": s.indexName,
		"k":     k,
		"vec":   vec,
	})
	if err != nil {
		return nil, fmt.Errorf("vector query %q: %w: %w", s.indexName, domain.ErrIndexUnavailable, err)
	}

	hits := make([]domain.SummaryHit, 0, len(records))
	for _, rec := range records {
		uuid := recordString(rec, "event_uuid")
		if uuid == "" {
			continue
		}
		hits = append(hits, domain.SummaryHit{
			Summary: domain.CandidateSummary{
				EventUUID:        uuid,
				SentimentSummary: recordString(rec, "sentiment_summary"),
			},
			Score: recordFloat(rec, "score"),
		})
	}
	return hits, nil
}

// AllSummaries bulk-loads candidate summaries with embeddings for the
// in-memory fallback scan.
func (s *Store) AllSummaries(ctx context.Context, limit int) ([]domain.CandidateSummary, error) {
	cypher := fmt.Sprintf(`MATCH (n:AISummary)
WHERE n.%[1]s IS NOT NULL
RETURN n.event_uuid AS event_uuid, n.sentiment_summary AS sentiment_summary, n.%[1]s AS embedding
LIMIT $limit`, s.vectorProp)

	records, err := s.read(ctx, cypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("all summaries: %w", err)
	}

	summaries := make([]domain.CandidateSummary, 0, len(records))
	for _, rec := range records {
		uuid := recordString(rec, "event_uuid")
		if uuid == "" {
			continue
		}
		summaries = append(summaries, domain.CandidateSummary{
			EventUUID:        uuid,
			SentimentSummary: recordString(rec, "sentiment_summary"),
			Embedding:        recordVector(rec, "embedding"),
		})
	}
	return summaries, nil
}

// EventDetails fetches the display record for one stored occurrence.
func (s *Store) EventDetails(ctx context.Context, uuid string) (domain.EventDetails, error) {
	cypher := `MATCH (e:Event {uuid: $uuid})
RETURN e.title AS title, e.venue AS venue, e.date AS date, e.price AS price,
       e.city AS city, e.genre AS genre, e.duration AS duration`

	records, err := s.read(ctx, cypher, map[string]any{"uuid": uuid})
	if err != nil {
		return domain.EventDetails{}, fmt.Errorf("event details %s: %w", uuid, err)
	}
	if len(records) == 0 {
		return domain.EventDetails{}, fmt.Errorf("event %s: %w", uuid, domain.ErrNotFound)
	}

	return detailsFromRecord(records[0]), nil
}

// CuratedCollection fetches the pre-computed collection for a tag,
// ordered by tournament rank.
func (s *Store) CuratedCollection(ctx context.Context, tag string, limit int) ([]domain.ResultGroup, error) {
	cypher := `MATCH (c:Collection {category: $cat})-[r:CONTAINS]->(e:Event)
OPTIONAL MATCH (e)-[:HAS_AI_SUMMARY]->(n:AISummary)
RETURN e.uuid AS uuid, e.title AS title, e.venue AS venue, e.date AS date, e.price AS price,
       e.city AS city, e.genre AS genre, e.duration AS duration,
       r.reason AS reason, r.rank AS rank, n.sentiment_summary AS sentiment_summary
ORDER BY r.rank ASC
LIMIT $limit`

	records, err := s.read(ctx, cypher, map[string]any{"cat": tag, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("curated collection %q: %w", tag, err)
	}

	groups := make([]domain.ResultGroup, 0, len(records))
	for rank, rec := range records {
		details := detailsFromRecord(rec)
		groups = append(groups, domain.ResultGroup{
			// Rank-ordered, map rank to a descending score so curated and
			// searched results share one shape.
			Score: 1 - float64(rank)/float64(limit+1),
			Summary: domain.CandidateSummary{
				EventUUID:        recordString(rec, "uuid"),
				SentimentSummary: recordString(rec, "sentiment_summary"),
			},
			Details: details,
			Dates:   []string{details.Date},
			Reason:  recordString(rec, "reason"),
		})
	}
	return groups, nil
}

// EnsureVectorIndex creates the cosine vector index over the summary
// embedding property. Safe to call on every startup.
func (s *Store) EnsureVectorIndex(ctx context.Context, dimensions int) error {
	cypher := fmt.Sprintf(`CREATE VECTOR INDEX %s IF NOT EXISTS
FOR (n:AISummary) ON (n.%s)
OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: $dim, `+"`vector.similarity_function`"+`: 'cosine'}}`,
		s.indexName, s.vectorProp)

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, cypher, map[string]any{"dim": dimensions}); err != nil {
		if strings.Contains(err.Error(), "already indexed") || strings.Contains(err.Error(), "equivalent index") {
			return nil
		}
		return fmt.Errorf("create vector index: %w", err)
	}

	s.logger.Info("Vector index ready",
		zap.String("index", s.indexName),
		zap.Int("dimensions", dimensions),
	)
	return nil
}

// read runs a read transaction and collects all records.
func (s *Store) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return records.([]*neo4j.Record), nil
}
