package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/prospect-research/pkg/locale"
	"github.com/mikeboe/prospect-research/pkg/metrics"
	"github.com/mikeboe/prospect-research/pkg/search"
	"github.com/mikeboe/prospect-research/pkg/structured"
)

// EmailPattern is a company-wide convention for building addresses.
type EmailPattern string

const (
	PatternFirstDotLast   EmailPattern = "first.last"
	PatternFirstLast      EmailPattern = "firstlast"
	PatternFirstUnderLast EmailPattern = "first_last"
	PatternFirst          EmailPattern = "first"
	PatternFLast          EmailPattern = "flast"
	PatternFirstL         EmailPattern = "firstl"
	PatternUnknown        EmailPattern = "unknown"
)

var knownPatterns = []EmailPattern{
	PatternFirstDotLast, PatternFirstLast, PatternFirstUnderLast, PatternFLast, PatternFirstL, PatternFirst,
}

const peopleExtractorPrompt = `You extract named decision-makers from web search results.
List real people who currently work at the company in leadership or buying roles.
Only include an email or profile URL if it appears verbatim in the text. Never guess an email.`

const peopleSchema = `{
  "type": "object",
  "properties": {
    "people": {
      "type": "array",
      "maxItems": 5,
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "title": {"type": "string"},
          "email": {"type": "string"},
          "profileUrl": {"type": "string"}
        },
        "required": ["name", "title"]
      }
    }
  },
  "required": ["people"]
}`

const emailPatternPrompt = `You identify company email address formats.
From the search results, determine the format the company uses for employee email addresses.
Answer "unknown" unless the text clearly shows the format.`

const emailPatternSchema = `{
  "type": "object",
  "properties": {
    "pattern": {"type": "string", "enum": ["first.last", "firstlast", "first_last", "first", "flast", "firstl", "unknown"]}
  },
  "required": ["pattern"]
}`

type peopleExtraction struct {
	People []extractedPerson `json:"people" validate:"dive"`
}

type extractedPerson struct {
	Name       string `json:"name" validate:"required"`
	Title      string `json:"title"`
	Email      string `json:"email"`
	ProfileURL string `json:"profileUrl"`
}

type patternExtraction struct {
	Pattern EmailPattern `json:"pattern" validate:"required,oneof=first.last firstlast first_last first flast firstl unknown"`
}

const maxPassageChars = 1500

// discoverContacts finds decision-makers not yet known for the prospect and
// fills in missing emails from the company's email pattern. It returns the
// number of contacts discovered.
func (r *run) discoverContacts(ctx context.Context) (int, error) {
	r.phaseDepth, r.level = 1, 1
	r.s.reachDepth(1)

	queries := contactQueries(r.prospect)
	r.s.addQueries(queries)

	var passages []search.Passage
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if !r.s.claimQuery(q) {
			continue
		}
		metrics.QueriesTotal.WithLabelValues(string(PhaseContactDiscovery)).Inc()
		r.emit(StateSearching, q, nil, "Searching for decision-makers: %s", q)
		passages = append(passages, r.e.Search.Search(ctx, q)...)
	}
	if len(passages) == 0 {
		r.logger.Info("Contact discovery found no search results")
		return 0, nil
	}

	r.emit(StateExtractingLearning, "", nil, "Extracting decision-makers from %d results", len(passages))
	user := fmt.Sprintf("%s\nAlready known contacts (exclude them):\n%s\n\nSearch results:\n%s",
		describeProspect(r.prospect), bulletList(knownContactNames(r.prospect)), renderPassages(passages))

	var out peopleExtraction
	if err := r.gen.Generate(ctx, peopleExtractorPrompt, user, peopleSchema, &out); err != nil {
		metrics.ParseFailures.WithLabelValues("contacts").Inc()
		r.logger.Warn("Contact extraction failed", "error", err)
		return 0, nil
	}

	contacts := r.dedupeContacts(out.People)
	if len(contacts) == 0 {
		return 0, nil
	}

	if err := r.inferEmails(ctx, contacts); err != nil {
		return 0, err
	}

	r.s.DiscoveredContacts = append(r.s.DiscoveredContacts, contacts...)

	l := contactsLearning(r.prospect, contacts)
	r.s.addLearning(l)
	metrics.LearningsTotal.WithLabelValues(string(l.Category)).Inc()
	r.emit(StateExtractingLearning, "", &l, "Discovered %d decision-makers", len(contacts))

	return len(contacts), nil
}

func contactQueries(p ProspectContext) []string {
	industry := strings.TrimSpace(p.Industry)
	decisionMakers := p.Name + " decision makers"
	if industry != "" {
		decisionMakers = p.Name + " " + industry + " decision makers"
	}
	return []string{
		p.Name + " leadership team",
		p.Name + " CEO CTO CMO founders",
		decisionMakers,
	}
}

func knownContactNames(p ProspectContext) []string {
	names := make([]string, 0, len(p.Contacts))
	for _, c := range p.Contacts {
		names = append(names, c.Name)
	}
	return names
}

func (r *run) dedupeContacts(people []extractedPerson) []DiscoveredContact {
	seen := map[string]bool{}
	for _, c := range r.prospect.Contacts {
		seen[locale.Fold(c.Name)] = true
	}
	for _, c := range r.s.DiscoveredContacts {
		seen[locale.Fold(c.Name)] = true
	}

	out := []DiscoveredContact{}
	for _, p := range people {
		name := strings.TrimSpace(p.Name)
		k := locale.Fold(name)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true

		dc := DiscoveredContact{
			Name:       name,
			Title:      strings.TrimSpace(p.Title),
			ProfileURL: strings.TrimSpace(p.ProfileURL),
			Source:     ContactSourceSearched,
		}
		if email := strings.ToLower(strings.TrimSpace(p.Email)); structured.ValidEmail(email) {
			dc.Email = email
			dc.EmailSource = ContactSourceSearched
		}
		out = append(out, dc)
		if len(out) == maxDiscoveredContacts {
			break
		}
	}
	return out
}

// inferEmails fills missing emails in place. The pattern is derived from an
// address already found for one of the contacts when possible; otherwise
// one extra search asks for the company's email format.
func (r *run) inferEmails(ctx context.Context, contacts []DiscoveredContact) error {
	missing := false
	for _, c := range contacts {
		if c.Email == "" {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}

	domain := DomainFromWebsite(r.prospect.Website)
	pattern := PatternUnknown
	for _, c := range contacts {
		// Personal addresses say nothing about the company's convention.
		if c.Email == "" || isFreeMailDomain(emailDomain(c.Email)) {
			continue
		}
		if domain == "" {
			domain = emailDomain(c.Email)
		}
		if p := DetectPattern(c.Email, c.Name); p != PatternUnknown {
			pattern = p
			break
		}
	}
	if domain == "" {
		r.logger.Info("No company domain, skipping email inference")
		return nil
	}

	if pattern == PatternUnknown {
		var err error
		pattern, err = r.searchEmailPattern(ctx, domain)
		if err != nil {
			return err
		}
	}
	if pattern == PatternUnknown {
		return nil
	}

	for i := range contacts {
		if contacts[i].Email != "" {
			continue
		}
		if email, ok := ApplyPattern(pattern, contacts[i].Name, domain); ok {
			contacts[i].Email = email
			contacts[i].EmailSource = ContactSourceGenerated
		}
	}
	return nil
}

func (r *run) searchEmailPattern(ctx context.Context, domain string) (EmailPattern, error) {
	q := fmt.Sprintf("%s email format %s", r.prospect.Name, domain)
	r.s.addQueries([]string{q})
	if !r.s.claimQuery(q) {
		return PatternUnknown, nil
	}
	metrics.QueriesTotal.WithLabelValues(string(PhaseContactDiscovery)).Inc()

	r.emit(StateSearching, q, nil, "Looking up email format for %s", domain)
	passages := r.e.Search.Search(ctx, q)
	if err := ctx.Err(); err != nil {
		return PatternUnknown, err
	}
	if len(passages) == 0 {
		return PatternUnknown, nil
	}

	user := fmt.Sprintf("Company: %s\nDomain: %s\n\nSearch results:\n%s", r.prospect.Name, domain, renderPassages(passages))
	var out patternExtraction
	if err := r.gen.Generate(ctx, emailPatternPrompt, user, emailPatternSchema, &out); err != nil {
		metrics.ParseFailures.WithLabelValues("email_pattern").Inc()
		r.logger.Warn("Email pattern extraction failed", "domain", domain, "error", err)
		return PatternUnknown, nil
	}
	return out.Pattern, nil
}

func contactsLearning(p ProspectContext, contacts []DiscoveredContact) Learning {
	people := make([]string, 0, len(contacts))
	for _, c := range contacts {
		if c.Title != "" {
			people = append(people, fmt.Sprintf("%s (%s)", c.Name, c.Title))
		} else {
			people = append(people, c.Name)
		}
	}
	return Learning{
		ID:                uuid.NewString(),
		Insight:           fmt.Sprintf("Identified %d decision-makers at %s: %s", len(contacts), p.Name, strings.Join(people, ", ")),
		Confidence:        ConfidenceHigh,
		Category:          CategoryLeadership,
		Phase:             PhaseContactDiscovery,
		SourceTitle:       "Contact discovery",
		FollowUpQuestions: []string{},
		DiscoveredAt:      time.Now(),
	}
}

func renderPassages(passages []search.Passage) string {
	var sb strings.Builder
	for i, p := range passages {
		content := []rune(p.Content)
		if len(content) > maxPassageChars {
			content = content[:maxPassageChars]
		}
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1, p.Title, p.URL, string(content))
	}
	return sb.String()
}

// DomainFromWebsite returns the bare host of a website ("https://www.acme.io/x" -> "acme.io").
func DomainFromWebsite(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

var freeMailDomains = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "outlook.com": true, "hotmail.com": true,
	"live.com": true, "msn.com": true, "yahoo.com": true, "icloud.com": true, "me.com": true,
	"aol.com": true, "proton.me": true, "protonmail.com": true, "gmx.de": true, "gmx.net": true,
	"web.de": true, "t-online.de": true, "mail.ru": true, "yandex.ru": true, "qq.com": true,
	"163.com": true, "naver.com": true,
}

func isFreeMailDomain(domain string) bool {
	return freeMailDomains[domain]
}

func emailDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i != -1 {
		return strings.ToLower(email[i+1:])
	}
	return ""
}

var honorifics = map[string]bool{"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true}

// nameParts folds a full name into ASCII first and last name tokens.
func nameParts(fullName string) (first, last string) {
	var tokens []string
	for _, t := range strings.Fields(locale.Fold(fullName)) {
		t = strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' {
				return r
			}
			return -1
		}, t)
		if t == "" || honorifics[t] {
			continue
		}
		tokens = append(tokens, t)
	}
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	default:
		return tokens[0], tokens[len(tokens)-1]
	}
}

// ApplyPattern builds an email for fullName at domain.
func ApplyPattern(pattern EmailPattern, fullName, domain string) (string, bool) {
	first, last := nameParts(fullName)
	if first == "" || domain == "" {
		return "", false
	}
	if last == "" && pattern != PatternFirst {
		return "", false
	}

	var local string
	switch pattern {
	case PatternFirstDotLast:
		local = first + "." + last
	case PatternFirstLast:
		local = first + last
	case PatternFirstUnderLast:
		local = first + "_" + last
	case PatternFirst:
		local = first
	case PatternFLast:
		local = first[:1] + last
	case PatternFirstL:
		local = first + last[:1]
	default:
		return "", false
	}
	return local + "@" + domain, true
}

// DetectPattern works out which known pattern produced email for fullName.
func DetectPattern(email, fullName string) EmailPattern {
	domain := emailDomain(email)
	if domain == "" {
		return PatternUnknown
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, p := range knownPatterns {
		if candidate, ok := ApplyPattern(p, fullName, domain); ok && candidate == email {
			return p
		}
	}
	return PatternUnknown
}
