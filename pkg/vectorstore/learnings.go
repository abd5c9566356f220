package vectorstore

import (
	"context"
	"fmt"

	"github.com/mikeboe/prospect-research/pkg/research"
)

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LearningIndex embeds session learnings and answers semantic questions
// over them.
type LearningIndex struct {
	Store    *PGVectorStore
	Embedder Embedder
}

func NewLearningIndex(store *PGVectorStore, embedder Embedder) *LearningIndex {
	return &LearningIndex{Store: store, Embedder: embedder}
}

// Documents turns a session's learnings into unembedded documents.
func Documents(s *research.ResearchSession) []Document {
	docs := make([]Document, 0, len(s.Learnings))
	for _, l := range s.Learnings {
		docs = append(docs, Document{
			Content: fmt.Sprintf("%s: %s", s.ProspectName, l.Insight),
			Metadata: Metadata{
				ProspectID:   s.ProspectID,
				ProspectName: s.ProspectName,
				SessionID:    s.ID,
				LearningID:   l.ID,
				Category:     string(l.Category),
				Confidence:   string(l.Confidence),
				Phase:        string(l.Phase),
				SourceTitle:  l.SourceTitle,
				SourceURL:    l.SourceURL,
			},
		})
	}
	return docs
}

// IndexSession replaces whatever was indexed for s with its current
// learnings and returns how many were stored.
func (ix *LearningIndex) IndexSession(ctx context.Context, s *research.ResearchSession) (int, error) {
	docs := Documents(s)
	if err := ix.Store.DeleteSession(ctx, s.ID); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := ix.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed learnings: %w", err)
	}
	for i := range docs {
		docs[i].Embedding = vecs[i]
	}

	if err := ix.Store.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (ix *LearningIndex) Search(ctx context.Context, question string, topK int, f Filter) ([]SimilaritySearchResult, error) {
	vec, err := ix.Embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	return ix.Store.SimilaritySearch(ctx, vec, topK, f)
}
