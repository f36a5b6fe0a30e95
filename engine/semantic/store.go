package semantic

import (
	"context"
	"fmt"
	"strings"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/match"
	"github.com/carthesien/enrich/engine/normalize"
)

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     Dims,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection. Used before a full reindex.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// PointFor embeds one canonical variant. The text side mirrors the matcher's
// candidate tokens so index and query land in the same feature space.
func PointFor(v domain.CanonicalVariant) VariantPoint {
	tokens := match.CandidateTokens(v)
	return VariantPoint{
		Key:       v.Key,
		Embedding: Embed(tokens),
		Payload: map[string]any{
			"brand": normalize.Fold(v.Brand),
			"model": normalize.Fold(v.Model),
			"label": v.Label,
		},
	}
}

// IndexVariants upserts reference variants, keyed by their stable variant
// key so reindexing is idempotent.
func (v *VectorStore) IndexVariants(ctx context.Context, variants []domain.CanonicalVariant) error {
	if len(variants) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(variants))
	for i, variant := range variants {
		p := PointFor(variant)
		payload := make(map[string]*pb.Value, len(p.Payload))
		for k, val := range p.Payload {
			switch tv := val.(type) {
			case string:
				payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
			case int:
				payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
			case float64:
				payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
			case bool:
				payload[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
			default:
				payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
			}
		}

		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: p.Key},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Embedding},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(variants), err)
	}
	return nil
}

// Recall embeds the listing's comparison string and returns candidate
// variant keys, constrained to the resolved brand. Satisfies the matcher's
// recall hook.
func (v *VectorStore) Recall(ctx context.Context, comparison, brand string, topK int) ([]string, error) {
	hits, err := v.Search(ctx, Embed(strings.Fields(comparison)), topK, map[string]string{
		"brand": normalize.Fold(brand),
	})
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(hits))
	for i, h := range hits {
		keys[i] = h.VariantKey
	}
	return keys, nil
}

// Search performs k-NN similarity search with optional payload filters.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]SearchHit, error) {
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filters) > 0 {
		must := make([]*pb.Condition, 0, len(filters))
		for k, val := range filters {
			must = append(must, fieldMatch(k, val))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	hits := make([]SearchHit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		h := SearchHit{
			VariantKey: r.GetId().GetUuid(),
			Score:      r.GetScore(),
		}
		for k, val := range r.GetPayload() {
			switch k {
			case "brand":
				h.Brand = val.GetStringValue()
			case "label":
				h.Label = val.GetStringValue()
			}
		}
		hits[i] = h
	}
	return hits, nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
