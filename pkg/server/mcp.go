package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/prospect-research/pkg/chat"
	"github.com/mikeboe/prospect-research/pkg/research"
	"github.com/mikeboe/prospect-research/pkg/vectorstore"
)

// MCPVersion is reported in the MCP handshake.
const MCPVersion = "1.0.0"

// SessionLookup loads stored research sessions.
type SessionLookup interface {
	GetSession(ctx context.Context, jobID uuid.UUID) (*research.ResearchSession, error)
	LatestSession(ctx context.Context, prospectID string) (*research.ResearchSession, error)
}

// MCPServer exposes completed research to MCP clients.
type MCPServer struct {
	learnings chat.LearningSearcher
	sessions  SessionLookup
	server    *mcp.Server
}

func NewMCPServer(learnings chat.LearningSearcher, sessions SessionLookup) *MCPServer {
	s := &MCPServer{
		learnings: learnings,
		sessions:  sessions,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "prospect-research",
			Version: MCPVersion,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_learnings",
		Description: "Semantic search over learnings from completed prospect research",
	}, s.handleSearchLearnings)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_research_session",
		Description: "Get a completed research session by job id, or the latest one for a prospect",
	}, s.handleGetSession)

	return s
}

// Handler serves the streamable HTTP transport.
func (s *MCPServer) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

type SearchLearningsInput struct {
	Question      string   `json:"question" jsonschema:"what to look for in the research"`
	ProspectID    string   `json:"prospect_id,omitempty" jsonschema:"only search learnings of this prospect"`
	TopK          int      `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	Categories    []string `json:"categories,omitempty" jsonschema:"only return these categories"`
	MinConfidence string   `json:"min_confidence,omitempty" jsonschema:"minimum confidence: low, medium or high"`
}

type SearchLearningsOutput struct {
	Results []LearningHit `json:"results"`
	Count   int           `json:"count"`
}

type LearningHit struct {
	ProspectID string  `json:"prospect_id"`
	SessionID  string  `json:"session_id"`
	Content    string  `json:"content"`
	Category   string  `json:"category"`
	Confidence string  `json:"confidence"`
	SourceURL  string  `json:"source_url,omitempty"`
	Score      float64 `json:"score"`
}

func (s *MCPServer) handleSearchLearnings(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchLearningsInput,
) (*mcp.CallToolResult, SearchLearningsOutput, error) {
	if input.Question == "" {
		return nil, SearchLearningsOutput{}, errors.New("question is required")
	}
	topK := input.TopK
	if topK <= 0 {
		topK = 5
	}

	results, err := s.learnings.Search(ctx, input.Question, topK, learningFilter(input))
	if err != nil {
		return nil, SearchLearningsOutput{}, err
	}

	output := SearchLearningsOutput{
		Results: make([]LearningHit, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		m := r.Document.Metadata
		output.Results[i] = LearningHit{
			ProspectID: m.ProspectID,
			SessionID:  m.SessionID,
			Content:    r.Document.Content,
			Category:   m.Category,
			Confidence: m.Confidence,
			SourceURL:  m.SourceURL,
			Score:      r.Score,
		}
	}
	return nil, output, nil
}

type GetSessionInput struct {
	JobID      string `json:"job_id,omitempty" jsonschema:"research job id"`
	ProspectID string `json:"prospect_id,omitempty" jsonschema:"prospect id; used when job_id is empty"`
	Legacy     bool   `json:"legacy,omitempty" jsonschema:"return the sectioned legacy layout instead of the full session"`
}

// handleGetSession returns the session as JSON text. The session carries
// timestamps and maps that have no stable output schema.
func (s *MCPServer) handleGetSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetSessionInput,
) (*mcp.CallToolResult, any, error) {
	session, err := s.lookupSession(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	var payload any = session
	if input.Legacy {
		payload = research.ToLegacy(session)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding session: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func (s *MCPServer) lookupSession(ctx context.Context, input GetSessionInput) (*research.ResearchSession, error) {
	switch {
	case input.JobID != "":
		id, err := uuid.Parse(input.JobID)
		if err != nil {
			return nil, fmt.Errorf("invalid job_id: %w", err)
		}
		return s.sessions.GetSession(ctx, id)
	case input.ProspectID != "":
		session, err := s.sessions.LatestSession(ctx, input.ProspectID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, fmt.Errorf("no completed research for prospect %s", input.ProspectID)
		}
		return session, nil
	default:
		return nil, errors.New("job_id or prospect_id is required")
	}
}

func learningFilter(input SearchLearningsInput) vectorstore.Filter {
	return vectorstore.Filter{
		ProspectID:    input.ProspectID,
		Categories:    input.Categories,
		MinConfidence: input.MinConfidence,
	}
}
