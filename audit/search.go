// api/audit/search.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/util"
)

const DefaultSearchIndex = "audit-entries"

// SearchDocument is the shape of an entry in the search mirror. The mirror
// is a read model only; integrity is always checked against the relational
// store.
type SearchDocument struct {
	ID            string          `json:"id"`
	Seq           int64           `json:"seq"`
	HotelID       string          `json:"hotel_id,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	Action        string          `json:"action"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	Details       json.RawMessage `json:"details,omitempty"`
	SnapshotAfter json.RawMessage `json:"snapshot_after,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CurrentHash   string          `json:"current_hash"`
}

type SearchQuery struct {
	From       time.Time
	To         time.Time
	UserID     string
	HotelID    string
	EntityType string
	EntityID   string
	Text       string
	Size       int
}

type SearchIndex interface {
	IndexEntry(ctx context.Context, entry *AuditEntry) error
	QueryEntries(ctx context.Context, q SearchQuery) ([]SearchDocument, error)
}

type ElasticsearchIndex struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchIndex creates a search mirror against esURL.
func NewElasticsearchIndex(esURL, index string) (*ElasticsearchIndex, error) {
	return NewElasticsearchIndexWithTransport(esURL, index, nil)
}

func NewElasticsearchIndexWithTransport(esURL, index string, transport http.RoundTripper) (*ElasticsearchIndex, error) {
	if index == "" {
		index = DefaultSearchIndex
	}
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
		Transport: transport,
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchIndex{esClient: esClient, index: index}, nil
}

func toSearchDocument(e *AuditEntry) SearchDocument {
	doc := SearchDocument{
		ID:          e.ID,
		Seq:         e.Seq,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		CreatedAt:   e.CreatedAt.UTC(),
		CurrentHash: e.CurrentHash,
	}
	if e.HotelID != nil {
		doc.HotelID = *e.HotelID
	}
	if e.UserID != nil {
		doc.UserID = *e.UserID
	}
	if len(e.Details) > 0 {
		doc.Details = json.RawMessage(e.Details)
	}
	if len(e.SnapshotAfter) > 0 {
		doc.SnapshotAfter = json.RawMessage(e.SnapshotAfter)
	}
	return doc
}

// IndexEntry mirrors one entry. The entry id is the document id, so
// re-indexing is idempotent.
func (r *ElasticsearchIndex) IndexEntry(ctx context.Context, entry *AuditEntry) error {
	data, err := json.Marshal(toSearchDocument(entry))
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: entry.ID,
		Body:       bytes.NewReader(data),
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}
	return nil
}

// HandleAppended is an event bus subscriber for EventEntryAppended.
func (r *ElasticsearchIndex) HandleAppended(ctx context.Context, event util.Event) error {
	entry, ok := event.Payload.(*AuditEntry)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if err := r.IndexEntry(ctx, entry); err != nil {
		logger.Warn("Failed to mirror audit entry to search", zap.String("id", entry.ID), zap.Error(err))
		return err
	}
	return nil
}

func buildSearchBody(q SearchQuery) map[string]interface{} {
	must := []interface{}{}
	if !q.From.IsZero() || !q.To.IsZero() {
		window := map[string]interface{}{}
		if !q.From.IsZero() {
			window["gte"] = q.From.UTC().Format(time.RFC3339Nano)
		}
		if !q.To.IsZero() {
			window["lt"] = q.To.UTC().Format(time.RFC3339Nano)
		}
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"created_at": window},
		})
	}
	terms := map[string]string{
		"user_id":     q.UserID,
		"hotel_id":    q.HotelID,
		"entity_type": q.EntityType,
		"entity_id":   q.EntityID,
	}
	for _, field := range []string{"user_id", "hotel_id", "entity_type", "entity_id"} {
		if terms[field] != "" {
			must = append(must, map[string]interface{}{
				"term": map[string]interface{}{field: terms[field]},
			})
		}
	}
	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"action", "details", "snapshot_after"},
			},
		})
	}

	size := q.Size
	if size <= 0 {
		size = 50
	}
	return map[string]interface{}{
		"size": size,
		"sort": []interface{}{map[string]interface{}{"seq": "desc"}},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source SearchDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// QueryEntries searches the mirror within a time frame, optionally filtered
// by user, hotel and entity.
func (r *ElasticsearchIndex) QueryEntries(ctx context.Context, q SearchQuery) ([]SearchDocument, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchBody(q)); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching documents: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	docs := make([]SearchDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
