package embeddings

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Dimension is the size of every vector we store. 768 keeps the HNSW
// index usable.
const Dimension = 768

// maxBatch is the number of texts sent in one EmbedContent call.
const maxBatch = 100

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

var ErrEmptyEmbedding = errors.New("empty embedding returned")

// GoogleEmbedder embeds learnings and questions with the Gemini API.
type GoogleEmbedder struct {
	client *genai.Client
	model  string
}

func NewGoogleEmbedder(ctx context.Context, model, apiKey string) (*GoogleEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}

	return &GoogleEmbedder{
		client: client,
		model:  model,
	}, nil
}

// EmbedQuery embeds a search question.
func (e *GoogleEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments embeds texts for storage, batching requests.
func (e *GoogleEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := e.embed(ctx, texts[start:end], taskDocument)
		if err != nil {
			return nil, err
		}
		result = append(result, vecs...)
	}
	return result, nil
}

func (e *GoogleEmbedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	outputDim := int32(Dimension)
	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts: %w", len(texts), err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmptyEmbedding, len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, ErrEmptyEmbedding
		}
		out[i] = emb.Values
	}
	return out, nil
}
