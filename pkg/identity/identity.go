// Package identity maps source-specific identifiers (emails, CRM owner ids,
// free-text task and project names) onto the canonical consultant and project
// keys used across every warehouse table.
//
// All tables are static configuration injected at construction. The Mapper is
// read-only after New and safe for concurrent use by the source adapters.
package identity

import "strings"

// Sentinel keys emitted when a lookup cannot be resolved. Rows carrying these
// are still written to the warehouse so unresolved identities stay auditable.
const (
	UnknownConsultant = "UNKNOWN"
	UnknownProject    = "PROJ_UNKNOWN"
	DefaultChannel    = "Other"
)

// PlanType is a consultant's compensation plan. Fixed per consultant in the
// directory, never inferred from data.
type PlanType string

const (
	PlanSales    PlanType = "Sales"
	PlanDelivery PlanType = "Delivery"
	PlanHybrid   PlanType = "Hybrid"
)

// ParsePlanType normalizes a free-form plan string to a PlanType.
// Returns false when the value names no known plan.
func ParsePlanType(s string) (PlanType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sales":
		return PlanSales, true
	case "delivery":
		return PlanDelivery, true
	case "hybrid":
		return PlanHybrid, true
	}
	return "", false
}

// Consultant is a directory entry for a canonical consultant key.
type Consultant struct {
	ID   string   `json:"consultant_id"`
	Name string   `json:"name"`
	Plan PlanType `json:"plan_type"`
}

// ProjectKeyword binds a match keyword to a canonical project key.
// Order matters: the first containment match in the configured list wins.
type ProjectKeyword struct {
	Keyword   string
	ProjectID string
}

// Config holds the static identity tables. Loaded once at process start and
// passed to the Mapper; adapters never read mapping state from anywhere else.
type Config struct {
	Consultants     map[string]Consultant
	Emails          map[string]string
	Owners          map[string]string
	ProjectKeywords []ProjectKeyword
	Channels        map[string]string
}

// DefaultConfig returns the fixed consultant directory and mapping tables.
func DefaultConfig() Config {
	return Config{
		Consultants: map[string]Consultant{
			"CONS001": {ID: "CONS001", Name: "Rodolfo Solar", Plan: PlanSales},
			"CONS002": {ID: "CONS002", Name: "Anthony Alarcon", Plan: PlanDelivery},
			"CONS003": {ID: "CONS003", Name: "Julian Rodriguez", Plan: PlanHybrid},
		},
		Emails: map[string]string{
			"rodolfo@company.com": "CONS001",
			"anthony@company.com": "CONS002",
			"julian@company.com":  "CONS003",
		},
		Owners: map[string]string{
			"rod_solar_id": "CONS001",
			"anthony_id":   "CONS002",
			"julian_id":    "CONS003",
		},
		ProjectKeywords: []ProjectKeyword{
			{Keyword: "Atlantic City", ProjectID: "PROJ001"},
			{Keyword: "Etafashion", ProjectID: "PROJ002"},
			{Keyword: "Chinalco", ProjectID: "PROJ003"},
		},
		Channels: map[string]string{
			"ORGANIC_SEARCH": "Inbound",
			"PAID_SEARCH":    "Inbound",
			"REFERRALS":      "Referral",
			"DIRECT_TRAFFIC": "Direct",
			"OFFLINE":        "Field Sales",
		},
	}
}

// Mapper resolves external identifiers against the configured tables.
type Mapper struct {
	cfg Config
	// Lowercased copy of the keyword table so ResolveProject doesn't fold
	// case on every call.
	keywords []ProjectKeyword
}

// New builds a Mapper from cfg.
func New(cfg Config) *Mapper {
	keywords := make([]ProjectKeyword, len(cfg.ProjectKeywords))
	for i, kw := range cfg.ProjectKeywords {
		keywords[i] = ProjectKeyword{
			Keyword:   strings.ToLower(kw.Keyword),
			ProjectID: kw.ProjectID,
		}
	}
	return &Mapper{cfg: cfg, keywords: keywords}
}

// ResolveConsultantEmail maps a source user email to a consultant key.
func (m *Mapper) ResolveConsultantEmail(email string) string {
	if id, ok := m.cfg.Emails[email]; ok {
		return id
	}
	return UnknownConsultant
}

// ResolveOwner maps a CRM owner id to a consultant key.
func (m *Mapper) ResolveOwner(ownerID string) string {
	if id, ok := m.cfg.Owners[ownerID]; ok {
		return id
	}
	return UnknownConsultant
}

// ResolveProject maps free text (task names, survey answers) to a project key
// by ordered case-insensitive containment. First configured match wins.
func (m *Mapper) ResolveProject(freeText string) string {
	text := strings.ToLower(freeText)
	for _, kw := range m.keywords {
		if kw.Keyword != "" && strings.Contains(text, kw.Keyword) {
			return kw.ProjectID
		}
	}
	return UnknownProject
}

// ResolveChannel maps an analytics source to a sales channel.
func (m *Mapper) ResolveChannel(source string) string {
	if ch, ok := m.cfg.Channels[source]; ok {
		return ch
	}
	return DefaultChannel
}

// Lookup returns the directory entry for a consultant key.
func (m *Mapper) Lookup(consultantID string) (Consultant, bool) {
	c, ok := m.cfg.Consultants[consultantID]
	return c, ok
}

// Directory returns all directory entries, for listing endpoints.
func (m *Mapper) Directory() []Consultant {
	out := make([]Consultant, 0, len(m.cfg.Consultants))
	for _, c := range m.cfg.Consultants {
		out = append(out, c)
	}
	return out
}
