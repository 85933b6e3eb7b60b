package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ragstore/internal/chunker"
	"ragstore/internal/embedder"
	"ragstore/internal/extractor"
	"ragstore/internal/storage"
	"ragstore/pkg/types"
)

// Mode selects how a query ranks chunks.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeKeyword Mode = "keyword"
	ModeHybrid  Mode = "hybrid"
)

const (
	// DefaultTopK is the result count when a query does not specify one.
	DefaultTopK = 5

	// DefaultWorkers bounds parallel embedding batches during document
	// ingestion.
	DefaultWorkers = 4

	// rrfK dampens rank influence in reciprocal rank fusion.
	rrfK = 60

	contextSeparator = "\n\n---\n\n"
)

// Coordinator owns the pipeline stages and runs the ingestion and query
// flows over them.
type Coordinator struct {
	extractor *extractor.Extractor
	chunker   *chunker.Chunker
	embedder  embedder.Embedder
	store     storage.Store
	workers   int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers sets the number of parallel embedding batches during document
// ingestion.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New wires the pipeline stages into a Coordinator.
func New(ext *extractor.Extractor, ch *chunker.Chunker, emb embedder.Embedder, store storage.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		extractor: ext,
		chunker:   ch,
		embedder:  emb,
		store:     store,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IngestChunk embeds a single pre-chunked span and persists it. The returned
// record carries the storage-assigned id, the embedding, and the creation
// time, so the caller sees exactly what was stored.
func (c *Coordinator) IngestChunk(ctx context.Context, chunk types.Chunk) (*types.StoredRecord, error) {
	if err := chunk.Validate(); err != nil {
		return nil, types.WrapError(types.KindValidation, err, "invalid chunk")
	}

	emb, err := c.embedder.GenerateEmbedding(ctx, chunk.Content)
	if err != nil {
		return nil, err
	}

	rec := recordFromChunk(chunk, emb)
	if err := c.store.InsertRecord(ctx, rec); err != nil {
		return nil, err
	}

	stored := storedFromRecord(rec)
	return &stored, nil
}

// IngestDocumentRequest describes a document to run through the full
// pipeline. Exactly one of URL or Text must be set.
type IngestDocumentRequest struct {
	SessionID       string
	InteractionID   string
	DocumentID      string // generated when empty
	DocumentGroupID string
	Filename        string
	URL             string
	Text            string
}

// ChunkFailure reports a chunk that embedded successfully but failed to
// store.
type ChunkFailure struct {
	Offset int
	Err    error
}

// IngestDocumentResult reports what a document ingestion stored.
type IngestDocumentResult struct {
	Document *types.Document
	Stored   []types.StoredRecord
	Failed   []ChunkFailure
}

// IngestDocument extracts (when given a URL), chunks, embeds, and stores a
// document. Embedding failures abort before anything is stored. Storage
// failures are collected per chunk; chunks stored before a failure are not
// rolled back.
func (c *Coordinator) IngestDocument(ctx context.Context, req IngestDocumentRequest) (*IngestDocumentResult, error) {
	if req.SessionID == "" {
		return nil, types.NewError(types.KindValidation, "session id cannot be empty")
	}
	if (req.URL == "") == (req.Text == "") {
		return nil, types.NewError(types.KindValidation, "exactly one of url or text must be provided")
	}

	doc := &types.Document{
		ID:        req.DocumentID,
		GroupID:   req.DocumentGroupID,
		SessionID: req.SessionID,
		Filename:  req.Filename,
		Text:      req.Text,
	}
	if req.URL != "" {
		extracted, err := c.extractor.Extract(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		doc.SourceURL = extracted.SourceURL
		doc.ContentType = extracted.ContentType
		doc.Text = extracted.Text
		if doc.Filename == "" {
			doc.Filename = extracted.Filename
		}
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	spans := c.chunker.Chunk(doc.Text)
	if len(spans) == 0 {
		return nil, types.NewError(types.KindValidation, "document has no extractable text")
	}

	embeddings, err := c.embedSpans(ctx, spans)
	if err != nil {
		return nil, err
	}

	result := &IngestDocumentResult{Document: doc}
	for i, span := range spans {
		chunk := types.Chunk{
			SessionID:       req.SessionID,
			InteractionID:   req.InteractionID,
			DocumentID:      doc.ID,
			DocumentGroupID: req.DocumentGroupID,
			Filename:        doc.Filename,
			Offset:          span.Offset,
			Content:         span.Content,
		}
		rec := recordFromChunk(chunk, embeddings[i])
		if err := c.store.InsertRecord(ctx, rec); err != nil {
			result.Failed = append(result.Failed, ChunkFailure{Offset: span.Offset, Err: err})
			continue
		}
		result.Stored = append(result.Stored, storedFromRecord(rec))
	}

	return result, nil
}

// embedSpans embeds all spans in parallel batches, preserving span order in
// the result. Any batch failure fails the whole call.
func (c *Coordinator) embedSpans(ctx context.Context, spans []chunker.Span) ([]*embedder.Embedding, error) {
	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Content
	}

	embeddings := make([]*embedder.Embedding, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for start := 0; start < len(texts); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		g.Go(func() error {
			batch, err := c.embedder.GenerateBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
			}
			copy(embeddings[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// QueryRequest describes one retrieval query against a session.
type QueryRequest struct {
	SessionID string
	Prompt    string
	TopK      int  // defaults to DefaultTopK
	Mode      Mode // defaults to ModeVector
}

// QueryResult is the assembled context plus per-chunk provenance, ordered
// most relevant first.
type QueryResult struct {
	Context string
	Chunks  []types.RetrievedChunk
}

// Query embeds the prompt, searches the session, and assembles the ranked
// chunks. An empty or unknown session yields an empty result, not an error.
func (c *Coordinator) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if req.SessionID == "" {
		return nil, types.NewError(types.KindValidation, "session id cannot be empty")
	}
	if req.Prompt == "" {
		return nil, types.NewError(types.KindValidation, "prompt cannot be empty")
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}
	if req.Mode == "" {
		req.Mode = ModeVector
	}

	var hits []storage.VectorResult
	var err error
	switch req.Mode {
	case ModeVector:
		hits, err = c.searchVector(ctx, req.SessionID, req.Prompt, req.TopK)
	case ModeKeyword:
		hits, err = c.searchKeyword(ctx, req.SessionID, req.Prompt, req.TopK)
	case ModeHybrid:
		hits, err = c.searchHybrid(ctx, req.SessionID, req.Prompt, req.TopK)
	default:
		return nil, types.Errorf(types.KindValidation, "unknown query mode %q", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	return c.assemble(ctx, hits)
}

func (c *Coordinator) searchVector(ctx context.Context, sessionID, prompt string, topK int) ([]storage.VectorResult, error) {
	emb, err := c.embedder.GenerateEmbedding(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return c.store.SearchVector(ctx, sessionID, emb.Vector, topK)
}

func (c *Coordinator) searchKeyword(ctx context.Context, sessionID, prompt string, topK int) ([]storage.VectorResult, error) {
	textHits, err := c.store.SearchText(ctx, sessionID, prompt, topK)
	if err != nil {
		return nil, err
	}
	hits := make([]storage.VectorResult, len(textHits))
	for i, h := range textHits {
		hits[i] = storage.VectorResult{RecordID: h.RecordID, Score: h.Score}
	}
	return hits, nil
}

// searchHybrid fuses vector and keyword rankings with reciprocal rank
// fusion: each record scores the sum of 1/(rrfK + rank) over the lists it
// appears in.
func (c *Coordinator) searchHybrid(ctx context.Context, sessionID, prompt string, topK int) ([]storage.VectorResult, error) {
	// Overfetch both lists so fusion has candidates beyond the cut
	fetchK := topK * 2

	vecHits, err := c.searchVector(ctx, sessionID, prompt, fetchK)
	if err != nil {
		return nil, err
	}
	textHits, err := c.searchKeyword(ctx, sessionID, prompt, fetchK)
	if err != nil {
		return nil, err
	}

	fused := make(map[int64]float64)
	order := make([]int64, 0, len(vecHits)+len(textHits))
	for rank, h := range vecHits {
		if _, seen := fused[h.RecordID]; !seen {
			order = append(order, h.RecordID)
		}
		fused[h.RecordID] += 1.0 / float64(rrfK+rank+1)
	}
	for rank, h := range textHits {
		if _, seen := fused[h.RecordID]; !seen {
			order = append(order, h.RecordID)
		}
		fused[h.RecordID] += 1.0 / float64(rrfK+rank+1)
	}

	// Stable sort keeps first-seen order for equal fused scores
	sort.SliceStable(order, func(i, j int) bool {
		return fused[order[i]] > fused[order[j]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	hits := make([]storage.VectorResult, topK)
	for i := 0; i < topK; i++ {
		hits[i] = storage.VectorResult{RecordID: order[i], Score: fused[order[i]]}
	}
	return hits, nil
}

// assemble fetches the full records for the hits and builds the context
// block, most relevant first.
func (c *Coordinator) assemble(ctx context.Context, hits []storage.VectorResult) (*QueryResult, error) {
	result := &QueryResult{Chunks: make([]types.RetrievedChunk, 0, len(hits))}
	parts := make([]string, 0, len(hits))

	for _, hit := range hits {
		rec, err := c.store.GetRecord(ctx, hit.RecordID)
		if err != nil {
			return nil, err
		}
		stored := storedFromRecord(rec)
		result.Chunks = append(result.Chunks, types.RetrievedChunk{
			StoredRecord: stored,
			Score:        hit.Score,
		})
		parts = append(parts, rec.Content)
	}

	result.Context = strings.Join(parts, contextSeparator)
	return result, nil
}

// Extract fetches and normalizes a URL without storing anything.
func (c *Coordinator) Extract(ctx context.Context, url string) (*types.Document, error) {
	return c.extractor.Extract(ctx, url)
}

// PurgeSession removes every record in a session and returns the count.
func (c *Coordinator) PurgeSession(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, types.NewError(types.KindValidation, "session id cannot be empty")
	}
	return c.store.DeleteSession(ctx, sessionID)
}

// PurgeDocument removes one document's records within a session and returns
// the count. Records of the same document id in other sessions are untouched.
func (c *Coordinator) PurgeDocument(ctx context.Context, sessionID, documentID string) (int, error) {
	if sessionID == "" {
		return 0, types.NewError(types.KindValidation, "session id cannot be empty")
	}
	if documentID == "" {
		return 0, types.NewError(types.KindValidation, "document id cannot be empty")
	}
	return c.store.DeleteDocument(ctx, sessionID, documentID)
}

// Status reports store contents plus the active embedding configuration.
type Status struct {
	Store     *storage.Status
	Provider  string
	Model     string
	Dimension int
}

// Status reports the pipeline's current state.
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	storeStatus, err := c.store.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Store:     storeStatus,
		Provider:  c.embedder.Provider(),
		Model:     c.embedder.Model(),
		Dimension: c.embedder.Dimension(),
	}, nil
}

func recordFromChunk(chunk types.Chunk, emb *embedder.Embedding) *storage.Record {
	return &storage.Record{
		SessionID:       chunk.SessionID,
		InteractionID:   chunk.InteractionID,
		DocumentID:      chunk.DocumentID,
		DocumentGroupID: chunk.DocumentGroupID,
		Filename:        chunk.Filename,
		Offset:          chunk.Offset,
		Content:         chunk.Content,
		Vector:          storage.SerializeVector(emb.Vector),
		Dimension:       emb.Dimension,
		Provider:        emb.Provider,
		Model:           emb.Model,
	}
}

func storedFromRecord(rec *storage.Record) types.StoredRecord {
	return types.StoredRecord{
		ID: rec.ID,
		Chunk: types.Chunk{
			SessionID:       rec.SessionID,
			InteractionID:   rec.InteractionID,
			DocumentID:      rec.DocumentID,
			DocumentGroupID: rec.DocumentGroupID,
			Filename:        rec.Filename,
			Offset:          rec.Offset,
			Content:         rec.Content,
		},
		Embedding: storage.DeserializeVector(rec.Vector),
		CreatedAt: rec.CreatedAt,
	}
}
