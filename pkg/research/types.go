package research

import (
	"time"

	"github.com/mikeboe/prospect-research/pkg/search"
)

// Hard limits. They bound API cost and recursion regardless of the
// configuration a caller supplies.
const (
	MaxDepth             = 3
	MaxBreadth           = 5
	MaxTotalQueries      = 20
	MaxFollowUpQuestions = 2
	MaxContextLearnings  = 10

	maxDiscoveredContacts = 5
	maxSalesAngles        = 5
	maxHooks              = 5
)

// Phase is an independently enable-able stage of research.
type Phase string

const (
	PhaseCompany          Phase = "company"
	PhaseContacts         Phase = "contacts"
	PhaseContactDiscovery Phase = "contact_discovery"
	PhaseMarket           Phase = "market"
	PhaseSynthesis        Phase = "synthesis"
)

// ResearchPhases are the phases a caller may enable, in execution order.
var ResearchPhases = []Phase{PhaseCompany, PhaseContacts, PhaseContactDiscovery, PhaseMarket}

// Focus steers what the research goals emphasise.
type Focus string

const (
	FocusSales         Focus = "sales"
	FocusCompetitive   Focus = "competitive"
	FocusComprehensive Focus = "comprehensive"
)

// State is a step of the research state machine reported in progress events.
type State string

const (
	StateInitializing       State = "initializing"
	StateGeneratingQueries  State = "generating_queries"
	StateSearching          State = "searching"
	StateEvaluating         State = "evaluating"
	StateExtractingLearning State = "extracting_learnings"
	StateFollowingUp        State = "following_up"
	StateSynthesizing       State = "synthesizing"
	StateComplete           State = "complete"
	StateFailed             State = "failed"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type Category string

const (
	CategoryFunding     Category = "funding"
	CategoryNews        Category = "news"
	CategoryProduct     Category = "product"
	CategoryCompetitor  Category = "competitor"
	CategoryLeadership  Category = "leadership"
	CategoryCulture     Category = "culture"
	CategoryTechnology  Category = "technology"
	CategoryMarket      Category = "market"
	CategoryPainPoint   Category = "pain_point"
	CategoryOpportunity Category = "opportunity"
	CategoryGeneral     Category = "general"
)

// Contact is a person already known at the prospect.
type Contact struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Email string `json:"email,omitempty"`
}

// BuyerPersona is optional context about who we sell to and what we offer.
type BuyerPersona struct {
	Name              string   `json:"name,omitempty"`
	PainPoints        []string `json:"painPoints,omitempty"`
	ValuePropositions []string `json:"valuePropositions,omitempty"`
}

// ProspectContext describes the entity being researched. Treated as immutable.
type ProspectContext struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Website  string        `json:"website,omitempty"`
	Industry string        `json:"industry,omitempty"`
	Location string        `json:"location,omitempty"`
	Country  string        `json:"country,omitempty"`
	Contacts []Contact     `json:"contacts,omitempty"`
	Persona  *BuyerPersona `json:"persona,omitempty"`
}

// Learning is one atomic, sourced finding.
type Learning struct {
	ID                string     `json:"id"`
	Insight           string     `json:"insight"`
	Confidence        Confidence `json:"confidence"`
	Category          Category   `json:"category"`
	Phase             Phase      `json:"phase"`
	SourceTitle       string     `json:"sourceTitle,omitempty"`
	SourceURL         string     `json:"sourceUrl,omitempty"`
	FollowUpQuestions []string   `json:"followUpQuestions"`
	DiscoveredAt      time.Time  `json:"discoveredAt"`
}

// EvaluatedSearchResult is a passage plus the judge's verdict.
type EvaluatedSearchResult struct {
	Query          string         `json:"query"`
	Passage        search.Passage `json:"passage"`
	RelevanceScore float64        `json:"relevanceScore"`
	IsRelevant     bool           `json:"isRelevant"`
	Reasoning      string         `json:"reasoning"`
}

type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

type SalesAngle struct {
	Angle              string   `json:"angle"`
	Reasoning          string   `json:"reasoning"`
	TalkingPoints      []string `json:"talkingPoints"`
	SupportingEvidence []string `json:"supportingEvidence"`
	Strength           Strength `json:"strength"`
	BestContactTitle   string   `json:"bestContactTitle,omitempty"`
}

type HookType string

const (
	HookRecentNews        HookType = "recent_news"
	HookFundingEvent      HookType = "funding_event"
	HookLeadershipChange  HookType = "leadership_change"
	HookCompanyMilestone  HookType = "company_milestone"
	HookSharedConnection  HookType = "shared_connection"
	HookIndustryTrend     HookType = "industry_trend"
	HookPainPoint         HookType = "pain_point"
	HookCompetitorMention HookType = "competitor_mention"
	HookTechnologyStack   HookType = "technology_stack"
)

type Freshness string

const (
	FreshnessVeryRecent Freshness = "very_recent"
	FreshnessRecent     Freshness = "recent"
	FreshnessOlder      Freshness = "older"
)

type PersonalizationHook struct {
	Hook      string    `json:"hook"`
	Type      HookType  `json:"type"`
	Basis     string    `json:"basis"`
	Freshness Freshness `json:"freshness"`
}

type RecommendedApproach struct {
	PrimaryAngle string   `json:"primaryAngle"`
	OpeningLine  string   `json:"openingLine"`
	KeyPoints    []string `json:"keyPoints"`
	CallToAction string   `json:"callToAction"`
	AvoidTopics  []string `json:"avoidTopics"`
}

// ContactSource records where a discovered contact's email came from.
type ContactSource string

const (
	ContactSourceSearched  ContactSource = "searched"
	ContactSourceGenerated ContactSource = "pattern_generated"
)

type DiscoveredContact struct {
	Name        string        `json:"name"`
	Title       string        `json:"title"`
	Email       string        `json:"email,omitempty"`
	EmailSource ContactSource `json:"emailSource,omitempty"`
	ProfileURL  string        `json:"profileUrl,omitempty"`
	Source      ContactSource `json:"source"`
}

// PhaseRecord tracks completion of one phase.
type PhaseRecord struct {
	Completed bool `json:"completed"`
	Count     int  `json:"count"`
}

type Stats struct {
	TotalQueries         int   `json:"totalQueries"`
	TotalSearchResults   int   `json:"totalSearchResults"`
	RelevantResults      int   `json:"relevantResults"`
	TotalLearnings       int   `json:"totalLearnings"`
	ResearchDepthReached int   `json:"researchDepthReached"`
	DurationMs           int64 `json:"durationMs"`
}

// ResearchSession is the aggregate built by one Execute call.
type ResearchSession struct {
	ID                   string                  `json:"id"`
	ProspectID           string                  `json:"prospectId"`
	ProspectName         string                  `json:"prospectName"`
	Language             string                  `json:"language"`
	Config               ResearchConfig          `json:"config"`
	Queries              []string                `json:"queries"`
	CompletedQueries     []string                `json:"completedQueries"`
	SearchResults        []EvaluatedSearchResult `json:"searchResults"`
	Learnings            []Learning              `json:"learnings"`
	DiscoveredContacts   []DiscoveredContact     `json:"discoveredContacts"`
	Phases               map[Phase]PhaseRecord   `json:"phases"`
	SalesAngles          []SalesAngle            `json:"salesAngles"`
	PersonalizationHooks []PersonalizationHook   `json:"personalizationHooks"`
	RecommendedApproach  *RecommendedApproach    `json:"recommendedApproach,omitempty"`
	Stats                Stats                   `json:"stats"`
	State                State                   `json:"state"`
	StartedAt            time.Time               `json:"startedAt"`
	CompletedAt          *time.Time              `json:"completedAt,omitempty"`
}

// ProgressEvent is a read-only snapshot emitted during a session.
type ProgressEvent struct {
	SessionID            string    `json:"sessionId"`
	ProspectID           string    `json:"prospectId"`
	Phase                State     `json:"phase"`
	ResearchPhase        Phase     `json:"researchPhase,omitempty"`
	CurrentDepth         int       `json:"currentDepth"`
	MaxDepth             int       `json:"maxDepth"`
	CurrentQuery         string    `json:"currentQuery,omitempty"`
	QueriesCompleted     int       `json:"queriesCompleted"`
	LearningsFound       int       `json:"learningsFound"`
	RelevantResultsFound int       `json:"relevantResultsFound"`
	LatestLearning       *Learning `json:"latestLearning,omitempty"`
	Message              string    `json:"message"`
	Timestamp            time.Time `json:"timestamp"`
}

// ProgressCallback receives progress events inline.
type ProgressCallback func(ProgressEvent)
