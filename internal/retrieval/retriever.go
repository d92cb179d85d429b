// Package retrieval enriches analysis requests with knowledge base
// passages and similar resolved cases. Retrieval failures never block
// an analysis run; the built-in context is used instead.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"wbs-analyzer/internal/common/config"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/pipeline"
)

// defaultContext is the built-in regulatory context used whenever the
// knowledge base yields nothing.
const defaultContext = `WHISTLEBLOWING REGULATORY CONTEXT:

1. LEGAL BASIS:
   - Law 31/1999 jo. Law 20/2001 on the Eradication of Corruption
   - Law 28/1999 on Clean Governance free of corruption, collusion and nepotism
   - Government Regulation 43/2018 on Public Participation Procedures
   - Government Regulation 71/2000 on Reward Procedures

2. VIOLATION CATEGORIES:
   - Corruption and bribery
   - Gratuities
   - Fraud
   - Conflicts of interest
   - Procurement violations
   - Abuse of authority
   - Personal data violations
   - Ethics and discipline violations

3. REPORTER PROTECTION (ISO 37002):
   - Identity confidentiality
   - Protection from retaliation
   - Right to progress information
   - Secure two-way communication

4. HANDLING PRINCIPLES:
   - Independence and objectivity
   - Confidentiality and security
   - Professionalism and accountability
   - Proportionality of measures`

type Retriever struct {
	client *elasticsearch.Client
	cache  *Cache
	log    logger.Logger
	cfg    config.RetrievalConfig
}

// NewRetriever creates a retriever. cache may be nil, in which case
// every call hits the search cluster.
func NewRetriever(client *elasticsearch.Client, cache *Cache, log logger.Logger, cfg config.RetrievalConfig) *Retriever {
	return &Retriever{client: client, cache: cache, log: log, cfg: cfg}
}

// RetrieveContext returns knowledge base passages relevant to the query
// as one combined string. Results are cached; any failure falls back to
// the built-in context.
func (r *Retriever) RetrieveContext(ctx context.Context, query string) string {
	if cached, ok := r.cacheGet(ctx, "context", query); ok {
		return cached
	}

	hits, err := r.search(ctx, r.cfg.KnowledgeIndex, query, []string{"content^2", "source", "regulation"})
	if err != nil {
		r.log.Warn("knowledge retrieval failed, using built-in context", map[string]interface{}{
			"error": err.Error(),
		})
		return defaultContext
	}
	if len(hits) == 0 {
		r.log.Info("no relevant context found, using built-in context", nil)
		return defaultContext
	}

	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		source := stringField(hit, "source")
		if source == "" {
			source = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("[Source: %s]\n%s", source, stringField(hit, "content")))
	}
	combined := strings.Join(parts, "\n\n---\n\n")

	r.cacheSet(ctx, "context", query, combined)
	return combined
}

// RetrieveSimilarCases returns previously resolved cases resembling the
// report summary. Failures yield an empty slice.
func (r *Retriever) RetrieveSimilarCases(ctx context.Context, summary string) []pipeline.SimilarCase {
	hits, err := r.search(ctx, r.cfg.CaseIndex, summary, []string{"summary^2", "category", "outcome"})
	if err != nil {
		r.log.Warn("similar case retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	cases := make([]pipeline.SimilarCase, 0, len(hits))
	for _, hit := range hits {
		cases = append(cases, pipeline.SimilarCase{
			CaseID:     stringField(hit, "case_id"),
			Summary:    stringField(hit, "summary"),
			Category:   stringField(hit, "category"),
			Outcome:    stringField(hit, "outcome"),
			Similarity: hit.score,
		})
	}
	return cases
}

type searchHit struct {
	source map[string]interface{}
	score  float64
}

func (r *Retriever) search(ctx context.Context, index, query string, fields []string) ([]searchHit, error) {
	if index == "" {
		return nil, fmt.Errorf("index name is required")
	}

	size := r.cfg.TopK
	if size <= 0 {
		size = 5
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": fields,
				"type":   "best_fields",
			},
		},
	}
	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search returned %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64                `json:"_score"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]searchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, searchHit{source: h.Source, score: h.Score})
	}
	return hits, nil
}

func (r *Retriever) cacheGet(ctx context.Context, kind, query string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	return r.cache.Get(ctx, cacheKey(kind, query))
}

func (r *Retriever) cacheSet(ctx context.Context, kind, query, value string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(kind, query), value); err != nil {
		r.log.Warn("failed to cache retrieval result", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func stringField(hit searchHit, key string) string {
	if s, ok := hit.source[key].(string); ok {
		return s
	}
	return ""
}
