package index

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/models"
)

// fakeEmbedder produces deterministic unit vectors from text length so tests
// need no network
type fakeEmbedder struct {
	dimension int
	calls     int
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	vec := make([]float32, f.dimension)
	vec[len(text)%f.dimension] = 1
	return vec, nil
}

func (f *fakeEmbedder) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return f.GenerateEmbedding(ctx, query)
}

func (f *fakeEmbedder) ModelName() string                    { return "fake-embedder" }
func (f *fakeEmbedder) Dimension() int                       { return f.dimension }
func (f *fakeEmbedder) IsAvailable(ctx context.Context) bool { return true }

// memoryDocumentStorage implements interfaces.DocumentStorage for tests

type memoryDocumentStorage struct {
	documents map[string]*models.Document
	chunks    map[string][]*models.DocumentChunk
}

func newMemoryDocumentStorage() *memoryDocumentStorage {
	return &memoryDocumentStorage{
		documents: make(map[string]*models.Document),
		chunks:    make(map[string][]*models.DocumentChunk),
	}
}

func (s *memoryDocumentStorage) SaveDocument(doc *models.Document) error {
	copied := *doc
	s.documents[doc.ID] = &copied
	return nil
}

func (s *memoryDocumentStorage) GetDocument(id string) (*models.Document, error) {
	return s.documents[id], nil
}

func (s *memoryDocumentStorage) DeleteDocument(id string) error {
	delete(s.documents, id)
	return nil
}

func (s *memoryDocumentStorage) ListDocuments(ticker string) ([]*models.Document, error) {
	var out []*models.Document
	for _, d := range s.documents {
		if ticker == "" || d.Ticker == ticker {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memoryDocumentStorage) CountDocuments() (int, error) {
	return len(s.documents), nil
}

func (s *memoryDocumentStorage) ReplaceChunks(documentID string, chunks []*models.DocumentChunk) error {
	s.chunks[documentID] = chunks
	return nil
}

func (s *memoryDocumentStorage) GetChunks(documentID string) ([]*models.DocumentChunk, error) {
	return s.chunks[documentID], nil
}

func (s *memoryDocumentStorage) GetAllChunks() ([]*models.DocumentChunk, error) {
	var out []*models.DocumentChunk
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out, nil
}

func (s *memoryDocumentStorage) DeleteChunks(documentID string) error {
	delete(s.chunks, documentID)
	return nil
}

func newTestIndexer(t *testing.T) (*Indexer, *memoryDocumentStorage, *fakeEmbedder, *VectorIndex) {
	t.Helper()
	chunker, err := NewChunker(common.ChunkingConfig{ChunkSize: 64, ChunkOverlap: 8})
	require.NoError(t, err)
	idx, err := NewVectorIndex(4)
	require.NoError(t, err)

	embedder := &fakeEmbedder{dimension: 4}
	store := newMemoryDocumentStorage()
	return NewIndexer(chunker, embedder, store, idx, common.GetLogger()), store, embedder, idx
}

func TestIngestDocument(t *testing.T) {
	indexer, store, embedder, idx := newTestIndexer(t)

	doc, err := indexer.IngestDocument(context.Background(), &models.Document{
		Ticker:  "ACME",
		Title:   "Annual Report",
		Content: strings.Repeat("Risk factors include market volatility. ", 10),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.ID, "doc_"))
	assert.Equal(t, 1, doc.ChunkVersion)

	chunks, err := store.GetChunks(doc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
	assert.Equal(t, len(chunks), embedder.calls)
	assert.Equal(t, len(chunks), idx.Size())

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "ACME", c.Ticker)
		assert.Equal(t, 1, c.Version)
		assert.Len(t, c.Embedding, 4)
	}
}

func TestReindexDocumentBumpsVersion(t *testing.T) {
	indexer, store, _, idx := newTestIndexer(t)

	doc, err := indexer.IngestDocument(context.Background(), &models.Document{
		Ticker:  "ACME",
		Content: strings.Repeat("quarterly filing text ", 20),
	})
	require.NoError(t, err)
	firstCount := idx.Size()

	require.NoError(t, indexer.ReindexDocument(context.Background(), doc.ID))

	updated, err := store.GetDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ChunkVersion)

	chunks, err := store.GetChunks(doc.ID)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.Equal(t, 2, c.Version)
	}

	// Same content, same chunk count; no stale v1 chunks left behind
	assert.Equal(t, firstCount, idx.Size())
}

func TestReindexMissingDocument(t *testing.T) {
	indexer, _, _, _ := newTestIndexer(t)
	err := indexer.ReindexDocument(context.Background(), "doc_missing")
	assert.Error(t, err)
}

func TestRemoveDocument(t *testing.T) {
	indexer, store, _, idx := newTestIndexer(t)

	doc, err := indexer.IngestDocument(context.Background(), &models.Document{
		Ticker:  "ACME",
		Content: "short filing",
	})
	require.NoError(t, err)

	require.NoError(t, indexer.RemoveDocument(doc.ID))

	gone, err := store.GetDocument(doc.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	chunks, err := store.GetChunks(doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, idx.Size())
}

func TestLoadFromStorage(t *testing.T) {
	indexer, store, _, _ := newTestIndexer(t)

	doc, err := indexer.IngestDocument(context.Background(), &models.Document{
		Ticker:  "ACME",
		Content: strings.Repeat("persisted content ", 15),
	})
	require.NoError(t, err)

	// Fresh index simulating a restart; chunks come back from storage
	rebuilt, err := NewVectorIndex(4)
	require.NoError(t, err)
	reloaded := NewIndexer(nil, &fakeEmbedder{dimension: 4}, store, rebuilt, common.GetLogger())

	require.NoError(t, reloaded.LoadFromStorage())

	persisted, err := store.GetChunks(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(persisted), rebuilt.Size())
}
