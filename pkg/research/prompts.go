package research

import (
	"fmt"
	"strings"

	"github.com/mikeboe/prospect-research/pkg/locale"
)

func focusBrief(f Focus) string {
	switch f {
	case FocusCompetitive:
		return "Prioritise competitive positioning: competitors, differentiation, pricing and where they win or lose deals."
	case FocusComprehensive:
		return "Cover both buying signals (growth, funding, hiring, pain points) and competitive positioning."
	default:
		return "Prioritise buying signals: growth, funding, hiring, new initiatives and operational pain points."
	}
}

func describeProspect(p ProspectContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\n", p.Name)
	if p.Website != "" {
		fmt.Fprintf(&sb, "Website: %s\n", p.Website)
	}
	if p.Industry != "" {
		fmt.Fprintf(&sb, "Industry: %s\n", p.Industry)
	}
	if loc := strings.TrimSpace(strings.Join(nonEmpty(p.Location, p.Country), ", ")); loc != "" {
		fmt.Fprintf(&sb, "Location: %s\n", loc)
	}
	return sb.String()
}

func phaseGoal(p ProspectContext, phase Phase, focus Focus) string {
	industry := p.Industry
	if industry == "" {
		industry = "its industry"
	}

	switch phase {
	case PhaseContacts:
		names := make([]string, 0, len(p.Contacts))
		for _, c := range p.Contacts {
			if c.Title != "" {
				names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.Title))
			} else {
				names = append(names, c.Name)
			}
		}
		return fmt.Sprintf("Research the known contacts at %s: %s. Find their background, recent public activity, stated priorities and anything that signals what they care about right now.",
			p.Name, strings.Join(names, ", "))
	case PhaseMarket:
		return fmt.Sprintf("Research the market around %s in %s: main competitors, industry trends, regulation and the pain points companies like them typically face. %s",
			p.Name, industry, focusBrief(focus))
	default:
		return fmt.Sprintf("Research %s (%s): recent news, funding, products, technology stack, leadership changes and culture. %s",
			p.Name, industry, focusBrief(focus))
	}
}

func followUpGoal(goal string, l Learning) string {
	return fmt.Sprintf("%s\n\nBuilding on this finding: %s\nOpen questions:\n- %s",
		goal, l.Insight, strings.Join(l.FollowUpQuestions, "\n- "))
}

func languageInstruction(lang locale.Language) string {
	if lang.IsEnglish() {
		return "Write every query in English."
	}
	return fmt.Sprintf("Write most queries in %s so local sources are found, and keep one or two queries in English for international coverage.", lang.Name)
}

// summarizeLearnings renders learnings as a numbered, categorised list.
func summarizeLearnings(ls []Learning) string {
	if len(ls) == 0 {
		return "(none yet)"
	}
	var sb strings.Builder
	for i, l := range ls {
		fmt.Fprintf(&sb, "%d. [%s/%s] %s\n", i+1, l.Category, l.Confidence, l.Insight)
	}
	return sb.String()
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return "- " + strings.Join(items, "\n- ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
