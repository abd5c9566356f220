package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeboe/prospect-research/pkg/research"
	"github.com/mikeboe/prospect-research/pkg/vectorstore"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// LearningSearcher answers semantic questions over indexed learnings.
type LearningSearcher interface {
	Search(ctx context.Context, question string, topK int, f vectorstore.Filter) ([]vectorstore.SimilaritySearchResult, error)
}

// SessionFinder loads the latest completed session of a prospect. It
// returns nil without error when the prospect was never researched.
type SessionFinder interface {
	LatestSession(ctx context.Context, prospectID string) (*research.ResearchSession, error)
}

const defaultTopK = 5

// BriefingToolset exposes research results to the briefing agent.
type BriefingToolset struct {
	Learnings LearningSearcher
	Sessions  SessionFinder
}

func NewBriefingToolset(learnings LearningSearcher, sessions SessionFinder) *BriefingToolset {
	return &BriefingToolset{
		Learnings: learnings,
		Sessions:  sessions,
	}
}

func (t *BriefingToolset) Name() string {
	return "briefing_tools"
}

func (t *BriefingToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	searchTool, err := functiontool.New[SearchLearningsArgs, SearchLearningsResp](
		functiontool.Config{
			Name:        "search_learnings",
			Description: "Semantic search over learnings from completed prospect research. Optionally filter by prospect, category or minimum confidence.",
		},
		t.searchLearningsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}

	briefTool, err := functiontool.New[SalesBriefArgs, SalesBriefResp](
		functiontool.Config{
			Name:        "get_sales_brief",
			Description: "Get the recommended approach, sales angles, personalization hooks and discovered contacts from the latest research on a prospect.",
		},
		t.salesBriefTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sales brief tool: %w", err)
	}

	return []tool.Tool{searchTool, briefTool}, nil
}

type SearchLearningsArgs struct {
	Question      string   `json:"question" description:"What to look for in the research"`
	ProspectID    string   `json:"prospectId,omitempty" description:"Optional prospect id filter"`
	TopK          int      `json:"topK,omitempty" description:"Number of results to return (default 5)"`
	Categories    []string `json:"categories,omitempty" description:"Optional category filter, e.g. funding, news, pain_point"`
	MinConfidence string   `json:"minConfidence,omitempty" description:"Optional minimum confidence: low, medium or high"`
}

type SearchLearningsResp struct {
	Results string `json:"results"`
	Count   int    `json:"count"`
}

func (t *BriefingToolset) searchLearningsTool(ctx tool.Context, args SearchLearningsArgs) (SearchLearningsResp, error) {
	return t.SearchLearnings(ctx, args)
}

// SearchLearnings runs a semantic search and formats the hits as text.
func (t *BriefingToolset) SearchLearnings(ctx context.Context, args SearchLearningsArgs) (SearchLearningsResp, error) {
	if strings.TrimSpace(args.Question) == "" {
		return SearchLearningsResp{}, fmt.Errorf("question is required")
	}
	if args.TopK <= 0 {
		args.TopK = defaultTopK
	}

	slog.Info("Search learnings", "question", args.Question, "topK", args.TopK, "prospect_id", args.ProspectID)

	results, err := t.Learnings.Search(ctx, args.Question, args.TopK, vectorstore.Filter{
		ProspectID:    args.ProspectID,
		Categories:    args.Categories,
		MinConfidence: args.MinConfidence,
	})
	if err != nil {
		return SearchLearningsResp{}, fmt.Errorf("failed to search learnings: %w", err)
	}

	return SearchLearningsResp{Results: FormatLearnings(results), Count: len(results)}, nil
}

// FormatLearnings renders search hits as a plain-text block per learning.
func FormatLearnings(results []vectorstore.SimilaritySearchResult) string {
	formatted := make([]string, 0, len(results))
	for _, r := range results {
		m := r.Document.Metadata
		var sb strings.Builder
		fmt.Fprintf(&sb, "[Prospect]: %s\n[Learning]: %s\n[Category]: %s\n[Confidence]: %s\n[Score]: %.2f",
			m.ProspectName, r.Document.Content, m.Category, m.Confidence, r.Score)
		if m.SourceURL != "" {
			fmt.Fprintf(&sb, "\n[Source]: %s", m.SourceURL)
		}
		formatted = append(formatted, sb.String())
	}
	return strings.Join(formatted, "\n\n")
}

type SalesBriefArgs struct {
	ProspectID string `json:"prospectId" description:"The prospect id to brief on"`
}

type SalesBriefResp struct {
	Found bool   `json:"found"`
	Brief string `json:"brief"`
}

func (t *BriefingToolset) salesBriefTool(ctx tool.Context, args SalesBriefArgs) (SalesBriefResp, error) {
	return t.SalesBrief(ctx, args)
}

func (t *BriefingToolset) SalesBrief(ctx context.Context, args SalesBriefArgs) (SalesBriefResp, error) {
	if args.ProspectID == "" {
		return SalesBriefResp{}, fmt.Errorf("prospectId is required")
	}
	s, err := t.Sessions.LatestSession(ctx, args.ProspectID)
	if err != nil {
		return SalesBriefResp{}, fmt.Errorf("failed to load research: %w", err)
	}
	if s == nil {
		return SalesBriefResp{Brief: fmt.Sprintf("No completed research for prospect %s.", args.ProspectID)}, nil
	}
	return SalesBriefResp{Found: true, Brief: FormatBrief(s)}, nil
}

// FormatBrief renders the sales-facing part of a session as markdown.
func FormatBrief(s *research.ResearchSession) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Sales brief: %s\n", s.ProspectName)

	if a := s.RecommendedApproach; a != nil {
		sb.WriteString("\n## Recommended approach\n")
		fmt.Fprintf(&sb, "- Primary angle: %s\n", a.PrimaryAngle)
		fmt.Fprintf(&sb, "- Opening line: %s\n", a.OpeningLine)
		fmt.Fprintf(&sb, "- Call to action: %s\n", a.CallToAction)
		for _, p := range a.KeyPoints {
			fmt.Fprintf(&sb, "- Key point: %s\n", p)
		}
		if len(a.AvoidTopics) > 0 {
			fmt.Fprintf(&sb, "- Avoid: %s\n", strings.Join(a.AvoidTopics, ", "))
		}
	}

	if len(s.SalesAngles) > 0 {
		sb.WriteString("\n## Sales angles\n")
		for _, a := range s.SalesAngles {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", a.Angle, a.Strength, a.Reasoning)
		}
	}

	if len(s.PersonalizationHooks) > 0 {
		sb.WriteString("\n## Personalization hooks\n")
		for _, h := range s.PersonalizationHooks {
			fmt.Fprintf(&sb, "- [%s, %s] %s\n", h.Type, h.Freshness, h.Hook)
		}
	}

	if len(s.DiscoveredContacts) > 0 {
		sb.WriteString("\n## Contacts\n")
		for _, c := range s.DiscoveredContacts {
			line := c.Name
			if c.Title != "" {
				line += ", " + c.Title
			}
			if c.Email != "" {
				line += fmt.Sprintf(" <%s> (%s)", c.Email, c.EmailSource)
			}
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}

	if s.RecommendedApproach == nil && len(s.SalesAngles) == 0 && len(s.PersonalizationHooks) == 0 {
		fmt.Fprintf(&sb, "\nNo sales synthesis is available. %d learnings were recorded.\n", len(s.Learnings))
	}
	return sb.String()
}
