package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeboe/prospect-research/pkg/metrics"
)

const salesStrategistPrompt = `You are a sales strategist preparing outreach to a B2B prospect.
Turn the research findings into at most 5 sales angles, at most 5 personalization hooks and exactly one recommended approach.
Every angle and hook must be backed by the numbered findings. List topics the seller should avoid, such as recent layoffs or lawsuits.`

const synthesisSchema = `{
  "type": "object",
  "properties": {
    "salesAngles": {
      "type": "array",
      "maxItems": 5,
      "items": {
        "type": "object",
        "properties": {
          "angle": {"type": "string"},
          "reasoning": {"type": "string"},
          "talkingPoints": {"type": "array", "items": {"type": "string"}},
          "supportingEvidence": {"type": "array", "items": {"type": "string"}},
          "strength": {"type": "string", "enum": ["strong", "moderate", "weak"]},
          "bestContactTitle": {"type": "string"}
        },
        "required": ["angle", "reasoning", "strength"]
      }
    },
    "personalizationHooks": {
      "type": "array",
      "maxItems": 5,
      "items": {
        "type": "object",
        "properties": {
          "hook": {"type": "string"},
          "type": {"type": "string", "enum": ["recent_news", "funding_event", "leadership_change", "company_milestone", "shared_connection", "industry_trend", "pain_point", "competitor_mention", "technology_stack"]},
          "basis": {"type": "string"},
          "freshness": {"type": "string", "enum": ["very_recent", "recent", "older"]}
        },
        "required": ["hook", "type", "basis", "freshness"]
      }
    },
    "recommendedApproach": {
      "type": "object",
      "properties": {
        "primaryAngle": {"type": "string"},
        "openingLine": {"type": "string"},
        "keyPoints": {"type": "array", "items": {"type": "string"}},
        "callToAction": {"type": "string"},
        "avoidTopics": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["primaryAngle", "openingLine", "keyPoints", "callToAction", "avoidTopics"]
    }
  },
  "required": ["salesAngles", "personalizationHooks", "recommendedApproach"]
}`

type synthesis struct {
	SalesAngles          []synthesizedAngle   `json:"salesAngles" validate:"dive"`
	PersonalizationHooks []synthesizedHook    `json:"personalizationHooks" validate:"dive"`
	RecommendedApproach  *synthesizedApproach `json:"recommendedApproach" validate:"required"`
}

type synthesizedAngle struct {
	Angle              string   `json:"angle" validate:"required"`
	Reasoning          string   `json:"reasoning"`
	TalkingPoints      []string `json:"talkingPoints"`
	SupportingEvidence []string `json:"supportingEvidence"`
	Strength           Strength `json:"strength" validate:"required,oneof=strong moderate weak"`
	BestContactTitle   string   `json:"bestContactTitle"`
}

type synthesizedHook struct {
	Hook      string    `json:"hook" validate:"required"`
	Type      HookType  `json:"type" validate:"required,oneof=recent_news funding_event leadership_change company_milestone shared_connection industry_trend pain_point competitor_mention technology_stack"`
	Basis     string    `json:"basis"`
	Freshness Freshness `json:"freshness" validate:"required,oneof=very_recent recent older"`
}

type synthesizedApproach struct {
	PrimaryAngle string   `json:"primaryAngle" validate:"required"`
	OpeningLine  string   `json:"openingLine" validate:"required"`
	KeyPoints    []string `json:"keyPoints"`
	CallToAction string   `json:"callToAction" validate:"required"`
	AvoidTopics  []string `json:"avoidTopics"`
}

// synthesize turns the accumulated learnings into angles, hooks and an
// approach. It never fails the session: the synthesis phase is marked
// complete whether or not the model produced a usable answer.
func (r *run) synthesize(ctx context.Context) {
	r.phase = PhaseSynthesis
	if len(r.s.Learnings) == 0 {
		r.logger.Info("Skipping synthesis", "reason", "no learnings")
		r.s.completePhase(PhaseSynthesis, 0)
		return
	}
	if ctx.Err() != nil {
		return
	}

	r.emit(StateSynthesizing, "", nil, "Synthesizing sales strategy from %d learnings", len(r.s.Learnings))

	var out synthesis
	if err := r.gen.Generate(ctx, salesStrategistPrompt, r.synthesisInput(), synthesisSchema, &out); err != nil {
		metrics.ParseFailures.WithLabelValues("synthesis").Inc()
		r.logger.Warn("Sales synthesis failed, keeping raw learnings", "error", err)
		r.s.completePhase(PhaseSynthesis, 0)
		return
	}

	for _, a := range out.SalesAngles {
		if len(r.s.SalesAngles) == maxSalesAngles {
			break
		}
		r.s.SalesAngles = append(r.s.SalesAngles, SalesAngle{
			Angle:              strings.TrimSpace(a.Angle),
			Reasoning:          a.Reasoning,
			TalkingPoints:      nonEmpty(a.TalkingPoints...),
			SupportingEvidence: nonEmpty(a.SupportingEvidence...),
			Strength:           a.Strength,
			BestContactTitle:   a.BestContactTitle,
		})
	}
	for _, h := range out.PersonalizationHooks {
		if len(r.s.PersonalizationHooks) == maxHooks {
			break
		}
		r.s.PersonalizationHooks = append(r.s.PersonalizationHooks, PersonalizationHook{
			Hook:      strings.TrimSpace(h.Hook),
			Type:      h.Type,
			Basis:     h.Basis,
			Freshness: h.Freshness,
		})
	}
	ap := out.RecommendedApproach
	r.s.RecommendedApproach = &RecommendedApproach{
		PrimaryAngle: ap.PrimaryAngle,
		OpeningLine:  ap.OpeningLine,
		KeyPoints:    nonEmpty(ap.KeyPoints...),
		CallToAction: ap.CallToAction,
		AvoidTopics:  nonEmpty(ap.AvoidTopics...),
	}

	r.s.completePhase(PhaseSynthesis, len(r.s.SalesAngles)+len(r.s.PersonalizationHooks))
	r.logger.Info("Sales synthesis complete", "angles", len(r.s.SalesAngles), "hooks", len(r.s.PersonalizationHooks))
}

func (r *run) synthesisInput() string {
	var sb strings.Builder
	sb.WriteString(describeProspect(r.prospect))
	fmt.Fprintf(&sb, "Research focus: %s\n", focusBrief(r.s.Config.Focus))

	if p := r.prospect.Persona; p != nil {
		sb.WriteString("\nWe sell to this buyer persona")
		if p.Name != "" {
			fmt.Fprintf(&sb, " (%s)", p.Name)
		}
		sb.WriteString(".\n")
		if len(p.PainPoints) > 0 {
			fmt.Fprintf(&sb, "Pain points we solve:\n%s\n", bulletList(p.PainPoints))
		}
		if len(p.ValuePropositions) > 0 {
			fmt.Fprintf(&sb, "Our value propositions:\n%s\n", bulletList(p.ValuePropositions))
		}
	}

	if len(r.s.DiscoveredContacts) > 0 || len(r.prospect.Contacts) > 0 {
		sb.WriteString("\nPeople at the company:\n")
		for _, c := range r.prospect.Contacts {
			fmt.Fprintf(&sb, "- %s (%s)\n", c.Name, c.Title)
		}
		for _, c := range r.s.DiscoveredContacts {
			fmt.Fprintf(&sb, "- %s (%s)\n", c.Name, c.Title)
		}
	}

	fmt.Fprintf(&sb, "\nResearch findings:\n%s\n", summarizeLearnings(r.s.Learnings))
	return sb.String()
}
