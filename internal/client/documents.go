package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nkiryanov/doccollab/internal/models"
)

const PathDocuments = "/documents"

func (c *Client) Documents(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	err := c.do(ctx, http.MethodGet, PathDocuments, nil, &docs)
	return docs, err
}

func (c *Client) Document(ctx context.Context, id int64) (models.Document, error) {
	var doc models.Document
	err := c.do(ctx, http.MethodGet, documentPath(id), nil, &doc)
	return doc, err
}

// UpdateDocument saves document name and content, returns stored document
func (c *Client) UpdateDocument(ctx context.Context, doc models.Document) (models.Document, error) {
	var updated models.Document
	err := c.do(ctx, http.MethodPut, documentPath(doc.ID), doc, &updated)
	return updated, err
}

func documentPath(id int64) string {
	return PathDocuments + "/" + strconv.FormatInt(id, 10)
}
