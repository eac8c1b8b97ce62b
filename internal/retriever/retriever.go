// Package retriever queries the vector index for sections relevant to a
// user message, scoped to a single project.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"

	"github.com/zeus0z/cloudhumans-takehome/internal/model"
)

// Retriever finds the topK nearest sections for a query vector within a
// project. Results come back in index order; no re-ranking happens here.
type Retriever interface {
	SearchByVector(ctx context.Context, projectName string, vector []float32, topK int) ([]model.RetrievedSection, error)
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	// OverfetchLimit is the page size requested from the index. It is a
	// separate knob from the nearest-neighbor count in the vector clause;
	// the upstream index treats them independently.
	OverfetchLimit int
	SearchTimeout  time.Duration
}

type typesenseRetriever struct {
	client     *typesense.Client
	collection string
	overfetch  int
	timeout    time.Duration
}

func New(cfg Config) Retriever {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(cfg.SearchTimeout),
	)

	return &typesenseRetriever{
		client:     client,
		collection: cfg.Collection,
		overfetch:  cfg.OverfetchLimit,
		timeout:    cfg.SearchTimeout,
	}
}

func (r *typesenseRetriever) SearchByVector(ctx context.Context, projectName string, vector []float32, topK int) ([]model.RetrievedSection, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := r.client.Collection(r.collection).Documents().Search(ctx, &api.SearchCollectionParams{
		Q:             pointer.String("*"),
		FilterBy:      pointer.String(buildProjectFilter(projectName)),
		VectorQuery:   pointer.String(buildVectorQuery(vector, topK)),
		PerPage:       pointer.Int(r.overfetch),
		IncludeFields: pointer.String("content,type"),
	})
	if err != nil {
		return nil, fmt.Errorf("typesense search: %w", err)
	}

	sections := mapHits(result)

	slog.DebugContext(ctx, "vector search completed",
		"collection", r.collection,
		"duration_ms", time.Since(start).Milliseconds(),
		"sections", len(sections))

	return sections, nil
}

// buildProjectFilter builds an exact-match filter on the projectName field.
// Backticks keep project names with spaces or reserved characters intact.
func buildProjectFilter(projectName string) string {
	return "projectName:=`" + projectName + "`"
}

// buildVectorQuery formats the nearest-neighbor clause against the
// embeddings field, e.g. "embeddings:([0.12,0.34], k:3)".
func buildVectorQuery(vector []float32, k int) string {
	var b strings.Builder
	b.WriteString("embeddings:([")
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteString("], k:")
	b.WriteString(strconv.Itoa(k))
	b.WriteString(")")
	return b.String()
}

// mapHits converts index hits to retrieved sections, preserving order.
// Typesense reports cosine distance; the exposed score is the matching
// similarity (1 - distance).
func mapHits(result *api.SearchResult) []model.RetrievedSection {
	if result == nil || result.Hits == nil {
		return nil
	}

	sections := make([]model.RetrievedSection, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document

		section := model.RetrievedSection{}
		if content, ok := doc["content"].(string); ok {
			section.Content = content
		}
		if typ, ok := doc["type"].(string); ok {
			section.Type = typ
		}
		if hit.VectorDistance != nil {
			section.Score = 1 - float64(*hit.VectorDistance)
		}
		sections = append(sections, section)
	}
	return sections
}
