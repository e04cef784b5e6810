// Package search maintains an elasticsearch index over submitted apps.
// The index is an accelerator, not the source of truth: a nil Index is
// valid, and callers fall back to database filtering when it is absent
// or failing. Queries preserve listing semantics: case-insensitive
// substring over name or description, newest first, insertion order on
// created-at ties.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"

	"github.com/Runteryaa/RunStore/internal/models"
)

type Index struct {
	client *elasticsearch.Client
	name   string
}

// document is the indexed shape of an app: the app itself plus the
// lowercased match fields the wildcard query targets and the seq
// tie-breaker the model keeps out of its JSON.
type document struct {
	models.App
	Seq              int64  `json:"seq"`
	NameLower        string `json:"nameLower"`
	DescriptionLower string `json:"descriptionLower"`
}

func New(url, user, password, index string) (*Index, error) {
	if url == "" {
		return nil, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	return &Index{client: client, name: index}, nil
}

// IndexApp upserts the app document. Called after create and after every
// status change.
func (i *Index) IndexApp(ctx context.Context, app *models.App) error {
	if i == nil {
		return nil
	}

	doc := document{
		App:              *app,
		Seq:              app.Seq,
		NameLower:        strings.ToLower(app.Name),
		DescriptionLower: strings.ToLower(app.Description),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.name,
		DocumentID: app.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index app %s: %s", app.ID, res.Status())
	}
	return nil
}

// escapeWildcard neutralizes the wildcard operators so a search term is
// always matched literally.
func escapeWildcard(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(term)
}

// buildQuery produces a substring query: a lowercased wildcard over the
// keyword subfields of name or description, optionally filtered by
// status, ordered like database listings.
func buildQuery(query, status string) map[string]any {
	pattern := "*" + escapeWildcard(strings.ToLower(query)) + "*"

	boolQuery := map[string]any{
		"should": []any{
			map[string]any{"wildcard": map[string]any{"nameLower.keyword": map[string]any{"value": pattern}}},
			map[string]any{"wildcard": map[string]any{"descriptionLower.keyword": map[string]any{"value": pattern}}},
		},
		"minimum_should_match": 1,
	}
	if status != "" {
		boolQuery["filter"] = map[string]any{
			"term": map[string]any{"status": status},
		}
	}

	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"sort": []any{
			map[string]any{"createdAt": map[string]any{"order": "desc"}},
			map[string]any{"seq": map[string]any{"order": "asc"}},
		},
	}
}

// Query runs the substring search, optionally filtered by status.
func (i *Index) Query(ctx context.Context, query, status string) ([]models.App, error) {
	if i == nil {
		return nil, fmt.Errorf("search index not configured")
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildQuery(query, status)); err != nil {
		return nil, err
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	apps := make([]models.App, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		app := h.Source.App
		app.Seq = h.Source.Seq
		apps = append(apps, app)
	}
	return apps, nil
}
