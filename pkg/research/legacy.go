package research

import "time"

// LegacyResearch is the flat company/contacts/market shape consumed by
// clients written before sessions existed.
type LegacyResearch struct {
	ProspectID   string            `json:"prospectId"`
	ProspectName string            `json:"prospectName"`
	Company      LegacyCompany     `json:"company"`
	Contacts     LegacyContacts    `json:"contacts"`
	Market       LegacyMarket      `json:"market"`
	Sales        LegacySales       `json:"sales"`
	Sources      []LegacySource    `json:"sources"`
	ResearchedAt string            `json:"researchedAt,omitempty"`
	Confidence   map[string]string `json:"confidence"`
}

type LegacyCompany struct {
	Overview   []string `json:"overview"`
	News       []string `json:"news"`
	Funding    []string `json:"funding"`
	Products   []string `json:"products"`
	Technology []string `json:"technology"`
	Culture    []string `json:"culture"`
}

type LegacyContacts struct {
	Leadership []string            `json:"leadership"`
	Discovered []DiscoveredContact `json:"discovered"`
}

type LegacyMarket struct {
	Competitors   []string `json:"competitors"`
	Trends        []string `json:"trends"`
	PainPoints    []string `json:"painPoints"`
	Opportunities []string `json:"opportunities"`
}

type LegacySales struct {
	Angles       []string `json:"angles"`
	Hooks        []string `json:"hooks"`
	OpeningLine  string   `json:"openingLine,omitempty"`
	CallToAction string   `json:"callToAction,omitempty"`
	AvoidTopics  []string `json:"avoidTopics"`
}

type LegacySource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ToLegacy regroups a session's learnings by category. It does not modify s.
func ToLegacy(s *ResearchSession) LegacyResearch {
	out := LegacyResearch{
		Company: LegacyCompany{
			Overview: []string{}, News: []string{}, Funding: []string{},
			Products: []string{}, Technology: []string{}, Culture: []string{},
		},
		Contacts: LegacyContacts{Leadership: []string{}, Discovered: []DiscoveredContact{}},
		Market: LegacyMarket{
			Competitors: []string{}, Trends: []string{}, PainPoints: []string{}, Opportunities: []string{},
		},
		Sales:      LegacySales{Angles: []string{}, Hooks: []string{}, AvoidTopics: []string{}},
		Sources:    []LegacySource{},
		Confidence: map[string]string{},
	}
	if s == nil {
		return out
	}

	out.ProspectID = s.ProspectID
	out.ProspectName = s.ProspectName
	if s.CompletedAt != nil {
		out.ResearchedAt = s.CompletedAt.UTC().Format(time.RFC3339)
	}

	seenSources := map[string]bool{}
	for _, l := range s.Learnings {
		switch l.Category {
		case CategoryNews:
			out.Company.News = append(out.Company.News, l.Insight)
		case CategoryFunding:
			out.Company.Funding = append(out.Company.Funding, l.Insight)
		case CategoryProduct:
			out.Company.Products = append(out.Company.Products, l.Insight)
		case CategoryTechnology:
			out.Company.Technology = append(out.Company.Technology, l.Insight)
		case CategoryCulture:
			out.Company.Culture = append(out.Company.Culture, l.Insight)
		case CategoryLeadership:
			out.Contacts.Leadership = append(out.Contacts.Leadership, l.Insight)
		case CategoryCompetitor:
			out.Market.Competitors = append(out.Market.Competitors, l.Insight)
		case CategoryMarket:
			out.Market.Trends = append(out.Market.Trends, l.Insight)
		case CategoryPainPoint:
			out.Market.PainPoints = append(out.Market.PainPoints, l.Insight)
		case CategoryOpportunity:
			out.Market.Opportunities = append(out.Market.Opportunities, l.Insight)
		default:
			out.Company.Overview = append(out.Company.Overview, l.Insight)
		}

		if l.SourceURL != "" && !seenSources[l.SourceURL] {
			seenSources[l.SourceURL] = true
			out.Sources = append(out.Sources, LegacySource{Title: l.SourceTitle, URL: l.SourceURL})
		}
	}
	out.Contacts.Discovered = append(out.Contacts.Discovered, s.DiscoveredContacts...)

	out.Confidence["company"] = sectionConfidence(s.Learnings, PhaseCompany)
	out.Confidence["contacts"] = sectionConfidence(s.Learnings, PhaseContacts, PhaseContactDiscovery)
	out.Confidence["market"] = sectionConfidence(s.Learnings, PhaseMarket)

	for _, a := range s.SalesAngles {
		out.Sales.Angles = append(out.Sales.Angles, a.Angle)
	}
	for _, h := range s.PersonalizationHooks {
		out.Sales.Hooks = append(out.Sales.Hooks, h.Hook)
	}
	if ra := s.RecommendedApproach; ra != nil {
		out.Sales.OpeningLine = ra.OpeningLine
		out.Sales.CallToAction = ra.CallToAction
		out.Sales.AvoidTopics = append(out.Sales.AvoidTopics, ra.AvoidTopics...)
	}
	return out
}

// sectionConfidence is the most common confidence among the learnings of
// the given phases, preferring the lower level on ties. Sections with no
// learnings report low.
func sectionConfidence(ls []Learning, phases ...Phase) string {
	counts := map[Confidence]int{}
	for _, l := range ls {
		for _, p := range phases {
			if l.Phase == p {
				counts[l.Confidence]++
			}
		}
	}
	best, bestN := ConfidenceLow, 0
	for _, c := range []Confidence{ConfidenceLow, ConfidenceMedium, ConfidenceHigh} {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return string(best)
}
