package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/pkg/repo"
	"github.com/carthesien/enrich/pkg/resilience"
)

// Neo4jStore reads observations from the evidence graph and appends fused
// bundles back to it. All calls go through a circuit breaker so an unhealthy
// graph degrades enrichment instead of stalling it.
type Neo4jStore struct {
	driver  neo4j.DriverWithContext
	bundles *repo.Neo4jRepo[Bundle, string]
	breaker *resilience.Breaker
}

// NewNeo4jStore wires a store over the given driver.
func NewNeo4jStore(driver neo4j.DriverWithContext) *Neo4jStore {
	return &Neo4jStore{
		driver: driver,
		bundles: repo.NewNeo4jRepo[Bundle, string](
			driver, "EvidenceBundle", bundleToMap, bundleFromRecord,
			repo.WithIDKey[Bundle, string]("variant_key"),
			repo.WithOrderKey[Bundle, string]("fused_at"),
		),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

// bundleToMap flattens the indexable fields and keeps the full bundle as a
// JSON payload; nested maps are not valid node properties.
func bundleToMap(b Bundle) map[string]any {
	payload, _ := json.Marshal(b)
	return map[string]any{
		"variant_key": b.VariantKey,
		"tier":        b.Tier.String(),
		"fallback":    b.Fallback,
		"fused_at":    b.FusedAt.UTC().Format(time.RFC3339Nano),
		"payload":     string(payload),
	}
}

func bundleFromRecord(rec *neo4j.Record) (Bundle, error) {
	var b Bundle
	node, ok := rec.Values[0].(neo4j.Node)
	if !ok {
		return b, fmt.Errorf("evidence: unexpected record shape %T", rec.Values[0])
	}
	payload, ok := node.Props["payload"].(string)
	if !ok {
		return b, errors.New("evidence: bundle node missing payload")
	}
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return b, fmt.Errorf("evidence: decode bundle: %w", err)
	}
	return b, nil
}

func (s *Neo4jStore) Observations(ctx context.Context, key string) ([]Observation, error) {
	var out []Observation
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
		defer sess.Close(ctx)

		cypher := `MATCH (o:Observation {subject_key: $key})
RETURN o.source_id, o.category, o.dimension, o.score, o.weight, o.observed_at`
		result, err := sess.Run(ctx, cypher, map[string]any{"key": key})
		if err != nil {
			return err
		}
		for result.Next(ctx) {
			o, err := observationFromValues(result.Record().Values)
			if err != nil {
				return err
			}
			out = append(out, o)
		}
		_, err = result.Consume(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func observationFromValues(vals []any) (Observation, error) {
	var o Observation
	if len(vals) != 6 {
		return o, fmt.Errorf("evidence: observation row has %d columns", len(vals))
	}
	o.SourceID, _ = vals[0].(string)
	if cat, ok := vals[1].(string); ok {
		o.Category = SourceCategory(cat)
	}
	if dim, ok := vals[2].(string); ok {
		o.Dimension = domain.Dimension(dim)
	}
	switch score := vals[3].(type) {
	case float64:
		o.Score = score
	case int64:
		o.Score = float64(score)
	default:
		return o, fmt.Errorf("evidence: observation %s has no score", o.SourceID)
	}
	switch w := vals[4].(type) {
	case float64:
		o.Weight = w
	case int64:
		o.Weight = float64(w)
	}
	switch at := vals[5].(type) {
	case time.Time:
		o.ObservedAt = at
	case string:
		o.ObservedAt, _ = time.Parse(time.RFC3339Nano, at)
	}
	return o, nil
}

func (s *Neo4jStore) Failures(ctx context.Context, key string) ([]string, error) {
	var out []string
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
		defer sess.Close(ctx)

		cypher := `MATCH (f:KnownFailure {subject_key: $key})
RETURN f.description ORDER BY f.description`
		result, err := sess.Run(ctx, cypher, map[string]any{"key": key})
		if err != nil {
			return err
		}
		for result.Next(ctx) {
			if desc, ok := result.Record().Values[0].(string); ok && desc != "" {
				out = append(out, desc)
			}
		}
		_, err = result.Consume(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Neo4jStore) SaveBundle(ctx context.Context, b Bundle) error {
	return s.breaker.Call(ctx, func(ctx context.Context) error {
		_, err := s.bundles.Create(ctx, b)
		return err
	})
}

// LatestBundle returns the most recently fused bundle for key, if any.
func (s *Neo4jStore) LatestBundle(ctx context.Context, key string) (Bundle, bool, error) {
	var (
		latest Bundle
		found  bool
	)
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		items, err := s.bundles.List(ctx, repo.ListOpts{
			Limit:  1,
			Filter: map[string]any{"variant_key": key},
		})
		if err != nil {
			return err
		}
		if len(items) > 0 {
			latest = items[0]
			found = true
		}
		return nil
	})
	if err != nil {
		return Bundle{}, false, err
	}
	return latest, found, nil
}

var _ Store = (*Neo4jStore)(nil)
