//go:generate go run go.uber.org/mock/mockgen -source=catalog_index.go -destination=../mocks/mock_catalog_index.go -package=mocks
package search

import (
	"context"
	"log/slog"
	"strings"

	"campus-lab/domain"

	"github.com/blugelabs/bluge"
)

// ICatalogIndex is the full-text side of the course catalog. The index
// only ever returns course ids; the document store stays the source of
// truth.
type ICatalogIndex interface {
	Index(course domain.Course) error
	Remove(courseID string) error
	Search(ctx context.Context, query Query) ([]string, error)
	Close() error
}

type CatalogIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewCatalogIndex(path string, log *slog.Logger) (*CatalogIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &CatalogIndex{writer: writer, log: log}, nil
}

// InMemoryCatalogIndex avoids touching the disk, for tests and
// ephemeral tooling.
func InMemoryCatalogIndex(log *slog.Logger) (*CatalogIndex, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &CatalogIndex{writer: writer, log: log}, nil
}

// Index upserts a course document. Indexing the same id again replaces
// the previous entry, so status and title edits never leave stale hits.
func (x *CatalogIndex) Index(course domain.Course) error {
	doc := bluge.NewDocument(course.ID).
		AddField(bluge.NewTextField("title", course.Title)).
		AddField(bluge.NewTextField("description", course.Description)).
		AddField(bluge.NewTextField("category", course.Category)).
		AddField(bluge.NewTextField("tags", strings.Join(course.Tags, " ")))
	return x.writer.Update(doc.ID(), doc)
}

func (x *CatalogIndex) Remove(courseID string) error {
	return x.writer.Delete(bluge.Identifier(courseID))
}

// Search returns matching course ids, best first. Terms are matched
// against title, description and tags; the tag and category filters of
// the query must all hold.
func (x *CatalogIndex) Search(ctx context.Context, query Query) ([]string, error) {
	reader, err := x.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			x.log.Warn("Closing index reader", "error", err)
		}
	}()

	request := bluge.NewTopNSearch(query.Limit, buildQuery(query))
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var ids []string
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			return ids, nil
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
}

func (x *CatalogIndex) Close() error {
	return x.writer.Close()
}

func buildQuery(query Query) bluge.Query {
	boolean := bluge.NewBooleanQuery()

	if terms := strings.TrimSpace(query.Terms); terms != "" {
		texts := bluge.NewBooleanQuery().
			AddShould(bluge.NewMatchQuery(terms).SetField("title")).
			AddShould(bluge.NewMatchQuery(terms).SetField("description")).
			AddShould(bluge.NewMatchQuery(terms).SetField("tags"))
		boolean.AddMust(texts)
	} else {
		boolean.AddMust(bluge.NewMatchAllQuery())
	}

	for _, tag := range query.Tags {
		boolean.AddMust(bluge.NewMatchQuery(tag).SetField("tags"))
	}
	if query.Category != "" {
		boolean.AddMust(bluge.NewMatchQuery(query.Category).SetField("category"))
	}
	return boolean
}
