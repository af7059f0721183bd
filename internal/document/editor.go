package document

import (
	"context"
	"fmt"
	"html"

	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/models"
)

type documentsAPI interface {
	Documents(ctx context.Context) ([]models.Document, error)
	Document(ctx context.Context, id int64) (models.Document, error)
	UpdateDocument(ctx context.Context, doc models.Document) (models.Document, error)
}

// Editor loads documents for display and saves edits
// Name and content are stored HTML escaped and shown unescaped
type Editor struct {
	api    documentsAPI
	logger logger.Logger
}

func NewEditor(api documentsAPI, l logger.Logger) *Editor {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &Editor{api: api, logger: l}
}

func (e *Editor) List(ctx context.Context) ([]models.Document, error) {
	docs, err := e.api.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("error while listing documents. Err: %w", err)
	}
	for i := range docs {
		docs[i] = unescape(docs[i])
	}
	return docs, nil
}

func (e *Editor) Open(ctx context.Context, id int64) (models.Document, error) {
	doc, err := e.api.Document(ctx, id)
	if err != nil {
		return models.Document{}, fmt.Errorf("error while opening document %d. Err: %w", id, err)
	}
	return unescape(doc), nil
}

// SaveTitle renames document, doc is the one returned by Open
func (e *Editor) SaveTitle(ctx context.Context, doc models.Document, title string) (models.Document, error) {
	doc.Name = title
	return e.save(ctx, doc)
}

// SaveContent replaces document content, doc is the one returned by Open
func (e *Editor) SaveContent(ctx context.Context, doc models.Document, content string) (models.Document, error) {
	doc.Content = content
	return e.save(ctx, doc)
}

func (e *Editor) save(ctx context.Context, doc models.Document) (models.Document, error) {
	doc.Name = html.EscapeString(doc.Name)
	doc.Content = html.EscapeString(doc.Content)

	saved, err := e.api.UpdateDocument(ctx, doc)
	if err != nil {
		e.logger.Error("Error while saving document", "id", doc.ID, "error", err)
		return models.Document{}, fmt.Errorf("error while saving document %d. Err: %w", doc.ID, err)
	}

	e.logger.Debug("Document saved", "id", saved.ID)
	return unescape(saved), nil
}

func unescape(doc models.Document) models.Document {
	doc.Name = html.UnescapeString(doc.Name)
	doc.Content = html.UnescapeString(doc.Content)
	return doc
}
