package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mikeboe/prospect-research/pkg/config"
	"github.com/mikeboe/prospect-research/pkg/database"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"
)

const (
	appName   = "prospect-research"
	agentName = "sales_briefer"
)

const briefingInstruction = `You are a sales research assistant. You answer questions about prospects using completed research.
Use search_learnings to find facts and cite the source URL of every fact you use.
Use get_sales_brief when the user asks how to approach a prospect, what to open with, or who to contact.
If the research does not answer a question, say so instead of guessing.
When a message starts with [prospect_id: ...], pass that id to the tools.`

type Service struct {
	config *config.Config
	DB     *database.PostgresDB
	Client *genai.Client
	Agent  agent.Agent
}

type Conversation struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	ProspectID *string   `json:"prospect_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// StreamEvent represents a single event in the chat stream
type StreamEvent struct {
	Type    string `json:"type"` // "content", "tool_call", "tool_result", "error", "done"
	Payload any    `json:"payload"`
}

func NewService(ctx context.Context, db *database.PostgresDB, cfg *config.Config, tools *BriefingToolset) (*Service, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GoogleApiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	modelClient, err := gemini.NewModel(ctx, cfg.ReasoningModel, &genai.ClientConfig{
		APIKey: cfg.GoogleApiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	briefer, err := llmagent.New(llmagent.Config{
		Name:        agentName,
		Model:       modelClient,
		Description: "A sales assistant that answers questions from completed prospect research.",
		Instruction: briefingInstruction,
		Toolsets: []tool.Toolset{
			tools,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return &Service{
		config: cfg,
		DB:     db,
		Client: client,
		Agent:  briefer,
	}, nil
}

// CreateConversation starts a conversation, optionally pinned to a prospect.
func (s *Service) CreateConversation(ctx context.Context, prospectID string) (*Conversation, error) {
	var pid *string
	if prospectID != "" {
		pid = &prospectID
	}

	query := `INSERT INTO conversations (id, prospect_id) VALUES ($1, $2) RETURNING id, title, prospect_id, created_at, updated_at`
	conv := &Conversation{}
	err := s.DB.Pool.QueryRow(ctx, query, uuid.New(), pid).Scan(&conv.ID, &conv.Title, &conv.ProspectID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) ListConversations(ctx context.Context) ([]Conversation, error) {
	query := `SELECT id, title, prospect_id, created_at, updated_at FROM conversations ORDER BY updated_at DESC`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.ProspectID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (s *Service) getConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	query := `SELECT id, title, prospect_id, created_at, updated_at FROM conversations WHERE id = $1`
	conv := &Conversation{}
	if err := s.DB.Pool.QueryRow(ctx, query, id).Scan(&conv.ID, &conv.Title, &conv.ProspectID, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return conv, nil
}

func (s *Service) GetHistory(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	query := `SELECT id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`
	rows, err := s.DB.Pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// agentInput prefixes the user's message with the pinned prospect so the
// agent can scope its tool calls.
func agentInput(conv *Conversation, content string) string {
	if conv.ProspectID == nil || *conv.ProspectID == "" {
		return content
	}
	return fmt.Sprintf("[prospect_id: %s] %s", *conv.ProspectID, content)
}

// historyEvent turns a stored message into a session event for the agent.
func historyEvent(msg Message) *session.Event {
	role := string(genai.RoleUser)
	author := "user"
	if msg.Role == string(genai.RoleModel) {
		role = string(genai.RoleModel)
		author = agentName
	}

	evt := session.NewEvent(uuid.NewString())
	evt.Author = author
	evt.LLMResponse = model.LLMResponse{
		Content: &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		},
	}
	return evt
}

func (s *Service) SendMessage(ctx context.Context, conversationID uuid.UUID, content string) (iter.Seq2[StreamEvent, error], error) {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	// 1. Save user message
	userMsgID := uuid.New()
	_, err = s.DB.Pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content) VALUES ($1, $2, 'user', $3)`,
		userMsgID, conversationID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	// 2. Rebuild the agent session from stored history
	sessionSvc := session.InMemoryService()
	userID := "user"
	sessionID := conversationID.String()

	createRes, err := sessionSvc.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent session: %w", err)
	}

	history, err := s.GetHistory(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	for _, msg := range history {
		if msg.ID == userMsgID {
			continue
		}
		if err := sessionSvc.AppendEvent(ctx, createRes.Session, historyEvent(msg)); err != nil {
			return nil, fmt.Errorf("failed to restore history: %w", err)
		}
	}

	// 3. Run agent
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          s.Agent,
		SessionService: sessionSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	userContent := genai.NewContentFromText(agentInput(conv, content), genai.RoleUser)

	return func(yield func(StreamEvent, error) bool) {
		slog.Info("Starting agent run", "conversation_id", conversationID)
		runCfg := agent.RunConfig{
			StreamingMode: agent.StreamingModeSSE,
		}

		var finalResponse strings.Builder
		streamed := false
		for event, err := range r.Run(ctx, userID, sessionID, userContent, runCfg) {
			if err != nil {
				slog.Error("Agent runner error", "error", err)
				yield(StreamEvent{Type: "error", Payload: err.Error()}, err)
				return
			}
			if event.LLMResponse.Content == nil {
				continue
			}
			for _, part := range event.LLMResponse.Content.Parts {
				if part.Text != "" {
					// Streaming mode sends partial chunks followed by the
					// aggregated text; only the chunks are forwarded.
					if !event.LLMResponse.Partial && streamed {
						continue
					}
					streamed = streamed || event.LLMResponse.Partial
					finalResponse.WriteString(part.Text)
					if !yield(StreamEvent{Type: "content", Payload: part.Text}, nil) {
						return
					}
				}
				if part.FunctionCall != nil {
					slog.Info("Agent tool call", "tool", part.FunctionCall.Name)
					if !yield(StreamEvent{Type: "tool_call", Payload: part.FunctionCall}, nil) {
						return
					}
				}
				if part.FunctionResponse != nil {
					slog.Info("Agent tool result", "tool", part.FunctionResponse.Name)
					if !yield(StreamEvent{Type: "tool_result", Payload: part.FunctionResponse}, nil) {
						return
					}
				}
			}
		}

		slog.Info("Agent run completed", "conversation_id", conversationID)

		// 4. Save model message after the stream completes
		_, err := s.DB.Pool.Exec(ctx,
			`INSERT INTO messages (id, conversation_id, role, content) VALUES ($1, $2, 'model', $3)`,
			uuid.New(), conversationID, finalResponse.String())
		if err != nil {
			slog.Error("Failed to save model message", "error", err)
		} else {
			_, _ = s.DB.Pool.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID)
		}

		yield(StreamEvent{Type: "done", Payload: "done"}, nil)

		if len(history) <= 2 {
			go s.generateTitle(conversationID, content, finalResponse.String())
		}
	}, nil
}

func (s *Service) generateTitle(convID uuid.UUID, userMsg, modelMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	prompt := fmt.Sprintf("Generate a short, concise title (max 5 words) for this sales research conversation:\nUser: %s\nModel: %s", userMsg, modelMsg)

	returnSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {Type: genai.TypeString},
		},
		Required: []string{"title"},
	}

	resp, err := s.Client.Models.GenerateContent(ctx, s.config.FastModel,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   returnSchema,
		})
	if err != nil {
		slog.Error("Failed to generate conversation title", "error", err)
		return
	}

	var respData struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(resp.Text()), &respData); err != nil {
		slog.Error("Failed to unmarshal title generation response", "error", err, "raw_json", resp.Text())
		return
	}

	if respData.Title != "" {
		if _, err := s.DB.Pool.Exec(ctx, `UPDATE conversations SET title = $2 WHERE id = $1`, convID, respData.Title); err != nil {
			slog.Error("Failed to update conversation title", "error", err)
		}
	}
}
