package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConsultantEmail(t *testing.T) {
	m := New(DefaultConfig())

	assert.Equal(t, "CONS002", m.ResolveConsultantEmail("anthony@company.com"))
	assert.Equal(t, "CONS003", m.ResolveConsultantEmail("julian@company.com"))
	assert.Equal(t, UnknownConsultant, m.ResolveConsultantEmail("nobody@company.com"))
	// Exact match only; no case folding on emails.
	assert.Equal(t, UnknownConsultant, m.ResolveConsultantEmail("Anthony@Company.com"))
}

func TestResolveOwner(t *testing.T) {
	m := New(DefaultConfig())

	assert.Equal(t, "CONS001", m.ResolveOwner("rod_solar_id"))
	assert.Equal(t, UnknownConsultant, m.ResolveOwner("someone_else"))
}

func TestResolveProject(t *testing.T) {
	m := New(DefaultConfig())

	assert.Equal(t, "PROJ001", m.ResolveProject("Atlantic City kickoff"))
	assert.Equal(t, "PROJ001", m.ResolveProject("sprint review ATLANTIC CITY ml"))
	assert.Equal(t, "PROJ002", m.ResolveProject("etafashion price engine"))
	assert.Equal(t, UnknownProject, m.ResolveProject("internal training"))
	assert.Equal(t, UnknownProject, m.ResolveProject(""))
}

func TestResolveProject_FirstMatchWins(t *testing.T) {
	// Two keywords that both match the same text; declaration order decides.
	m := New(Config{
		ProjectKeywords: []ProjectKeyword{
			{Keyword: "Atlantic", ProjectID: "PROJ_A"},
			{Keyword: "Atlantic City", ProjectID: "PROJ_B"},
		},
	})

	assert.Equal(t, "PROJ_A", m.ResolveProject("Atlantic City kickoff"))

	reversed := New(Config{
		ProjectKeywords: []ProjectKeyword{
			{Keyword: "Atlantic City", ProjectID: "PROJ_B"},
			{Keyword: "Atlantic", ProjectID: "PROJ_A"},
		},
	})
	assert.Equal(t, "PROJ_B", reversed.ResolveProject("Atlantic City kickoff"))
}

func TestResolveChannel(t *testing.T) {
	m := New(DefaultConfig())

	assert.Equal(t, "Inbound", m.ResolveChannel("ORGANIC_SEARCH"))
	assert.Equal(t, DefaultChannel, m.ResolveChannel("SOCIAL_MEDIA"))
	assert.Equal(t, DefaultChannel, m.ResolveChannel(""))
}

func TestLookup(t *testing.T) {
	m := New(DefaultConfig())

	c, ok := m.Lookup("CONS002")
	require.True(t, ok)
	assert.Equal(t, "Anthony Alarcon", c.Name)
	assert.Equal(t, PlanDelivery, c.Plan)

	_, ok = m.Lookup("CONS999")
	assert.False(t, ok)
}

func TestParsePlanType(t *testing.T) {
	for in, want := range map[string]PlanType{
		"Sales":    PlanSales,
		"delivery": PlanDelivery,
		" HYBRID ": PlanHybrid,
	} {
		got, ok := ParsePlanType(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := ParsePlanType("commission")
	assert.False(t, ok)
}

func TestDirectory(t *testing.T) {
	m := New(DefaultConfig())
	assert.Len(t, m.Directory(), 3)
}
