// Package search maintains the vector search index. Each image row projects
// to one document in a single Weaviate class; documents are derived data and
// may be deleted and rebuilt at any time.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	weaviatemodels "github.com/weaviate/weaviate/entities/models"

	"picsync/internal/models"
)

// pageSize bounds the full-index scans used by ListAll and DeleteBySids.
const pageSize = 100

// Client wraps the Weaviate client for one document class.
type Client struct {
	client *weaviate.Client
	class  string
	logger *slog.Logger
}

// NewClient creates a Weaviate-backed index for the given class.
func NewClient(url, class string, logger *slog.Logger) (*Client, error) {
	cfg := weaviate.Config{
		Host:   url,
		Scheme: "http",
	}
	if strings.HasPrefix(url, "http://") {
		cfg.Host = url[len("http://"):]
	} else if strings.HasPrefix(url, "https://") {
		cfg.Host = url[len("https://"):]
		cfg.Scheme = "https"
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{client: client, class: class, logger: logger}, nil
}

// Ping checks that the index is reachable.
func (c *Client) Ping(ctx context.Context) error {
	live, err := c.client.Misc().LiveChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("connect to weaviate: %w", err)
	}
	if !live {
		return fmt.Errorf("weaviate is not live")
	}
	return nil
}

// EnsureSchema creates the document class if it does not exist. The class
// stores externally computed vectors, so the vectorizer is none.
func (c *Client) EnsureSchema(ctx context.Context) error {
	exists, err := c.client.Schema().ClassExistenceChecker().
		WithClassName(c.class).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", c.class, err)
	}
	if exists {
		return nil
	}

	classObj := &weaviatemodels.Class{
		Class:      c.class,
		Vectorizer: "none",
		Properties: []*weaviatemodels.Property{
			{Name: "sid", DataType: []string{"text"}},
			{Name: "imgPath", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
		},
	}
	if err := c.client.Schema().ClassCreator().WithClass(classObj).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", c.class, err)
	}
	return nil
}

// Upsert merge-or-inserts each document by id. One document's failure does
// not prevent the rest; the sids (or paths, for sid-less documents) that
// failed are returned for the caller to report or retry.
func (c *Client) Upsert(ctx context.Context, docs []*models.Document) []string {
	var failed []string
	for _, doc := range docs {
		if err := c.upsertOne(ctx, doc); err != nil {
			c.logger.Warn("index: upsert failed",
				"id", doc.ID, "sid", doc.SID, "error", err)
			if doc.SID != "" {
				failed = append(failed, doc.SID)
			} else {
				failed = append(failed, doc.ImgPath)
			}
		}
	}
	return failed
}

func (c *Client) upsertOne(ctx context.Context, doc *models.Document) error {
	props := map[string]interface{}{
		"sid":     doc.SID,
		"imgPath": doc.ImgPath,
		"title":   doc.Title,
	}

	exists, err := c.client.Data().Checker().
		WithClassName(c.class).
		WithID(doc.ID).
		Do(ctx)
	if err != nil {
		// Treat a failed existence check as absent; creation will surface
		// the real error if the index is down.
		exists = false
	}

	if exists {
		updater := c.client.Data().Updater().
			WithClassName(c.class).
			WithID(doc.ID).
			WithProperties(props)
		if len(doc.Vector) > 0 {
			updater = updater.WithVector(doc.Vector)
		}
		return updater.Do(ctx)
	}

	creator := c.client.Data().Creator().
		WithClassName(c.class).
		WithID(doc.ID).
		WithProperties(props)
	if len(doc.Vector) > 0 {
		creator = creator.WithVector(doc.Vector)
	}
	_, err = creator.Do(ctx)
	return err
}

// DeleteBySids removes the documents for the given image sids. The index is
// keyed by a derived id and legacy documents may carry no sid at all, so the
// true keys are recovered with a paginated scan filtered by sid before the
// deletes are issued. O(index size); acceptable at catalog scale.
func (c *Client) DeleteBySids(ctx context.Context, sids []string) error {
	if len(sids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(sids))
	for _, sid := range sids {
		want[sid] = true
	}

	all, err := c.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("scan index for delete: %w", err)
	}

	var lastErr error
	for _, doc := range all {
		if !want[doc.SID] {
			continue
		}
		if err := c.Delete(ctx, doc.ID); err != nil {
			c.logger.Warn("index: delete failed", "id", doc.ID, "sid", doc.SID, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// Delete removes one document by its primary key.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.client.Data().Deleter().
		WithClassName(c.class).
		WithID(id).
		Do(ctx)
}

// Search runs a nearVector query and returns the top k documents with their
// sid, imgPath, and title. Pure read, no side effects.
func (c *Client) Search(ctx context.Context, vector []float32, k int) ([]*models.Document, error) {
	fields := []graphql.Field{
		{Name: "sid"},
		{Name: "imgPath"},
		{Name: "title"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}},
	}

	nearVector := c.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	result, err := c.client.GraphQL().Get().
		WithClassName(c.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector search: %s", result.Errors[0].Message)
	}

	return parseGraphQLDocs(result.Data, c.class)
}

// parseGraphQLDocs unpacks a Get query response into documents.
func parseGraphQLDocs(data map[string]weaviatemodels.JSONObject, class string) ([]*models.Document, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected search response format")
	}
	rows, ok := get[class].([]interface{})
	if !ok {
		return nil, nil
	}

	docs := make([]*models.Document, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		doc := &models.Document{}
		doc.SID, _ = m["sid"].(string)
		doc.ImgPath, _ = m["imgPath"].(string)
		doc.Title, _ = m["title"].(string)
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			doc.ID, _ = add["id"].(string)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ListAll fetches every document's id, sid, and imgPath with cursor
// pagination. Used by the reconciler and the delete-by-sid lookup.
func (c *Client) ListAll(ctx context.Context) ([]*models.Document, error) {
	var all []*models.Document
	after := ""

	for {
		getter := c.client.Data().ObjectsGetter().
			WithClassName(c.class).
			WithLimit(pageSize)
		if after != "" {
			getter = getter.WithAfter(after)
		}

		objs, err := getter.Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("list index documents: %w", err)
		}
		if len(objs) == 0 {
			break
		}

		for _, obj := range objs {
			doc := &models.Document{ID: obj.ID.String()}
			if props, ok := obj.Properties.(map[string]interface{}); ok {
				doc.SID, _ = props["sid"].(string)
				doc.ImgPath, _ = props["imgPath"].(string)
				doc.Title, _ = props["title"].(string)
			}
			all = append(all, doc)
		}

		if len(objs) < pageSize {
			break
		}
		after = objs[len(objs)-1].ID.String()
	}

	return all, nil
}
