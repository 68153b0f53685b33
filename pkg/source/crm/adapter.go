// Package crm pulls closed-won deals from the CRM and normalizes them into
// deal participation rows, one per owner and collaborator.
package crm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/consultia/bonusx/pkg/db/models/report"
	"github.com/consultia/bonusx/pkg/identity"
	"github.com/consultia/bonusx/pkg/period"
	"github.com/consultia/bonusx/pkg/source"
	"github.com/consultia/bonusx/pkg/utils"
	"go.uber.org/zap"
)

const (
	// SourceName identifies this adapter in errors, logs, and run events.
	SourceName = "crm"

	stageClosedWon  = "closedwon"
	defaultDealType = "PS"
	pageLimit       = 100
)

// recurringKeywords flag a deal as recurring business when any of them
// appears in the deal name.
var recurringKeywords = []string{"renewal", "subscription", "recurring", "maintenance"}

// DealProperties are the CRM deal fields the pipeline reads. Amounts arrive
// as decimal strings, close dates as RFC 3339 timestamps.
type DealProperties struct {
	DealName        string `json:"dealname"`
	Amount          string `json:"amount"`
	CloseDate       string `json:"closedate"`
	DealStage       string `json:"dealstage"`
	OwnerID         string `json:"hubspot_owner_id"`
	AnalyticsSource string `json:"hs_analytics_source"`
	ClientName      string `json:"client_name"`
}

// RawDeal is one deal object as the CRM API returns it.
type RawDeal struct {
	ID         string         `json:"id"`
	Properties DealProperties `json:"properties"`

	// Collaborators is filled by the per-deal associations fetch.
	Collaborators []string `json:"-"`

	closeDate time.Time
}

type dealsPage struct {
	Results []RawDeal `json:"results"`
	Paging  *struct {
		Next struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

type collaboratorsResponse struct {
	Properties struct {
		Collaborators string `json:"deal_collaborators"`
	} `json:"properties"`
}

// Adapter fetches and normalizes closed-won deals.
type Adapter struct {
	client   *source.Client
	mapper   *identity.Mapper
	logger   *zap.Logger
	maxPages int
}

// New builds the adapter from CRM_* environment configuration.
func New(logger *zap.Logger, mapper *identity.Mapper) *Adapter {
	client := source.NewClient(source.Opts{
		Source:  SourceName,
		BaseURL: utils.Env("CRM_BASE_URL", "https://api.hubapi.com/crm/v3"),
		Headers: map[string]string{
			"Authorization": "Bearer " + utils.Env("CRM_ACCESS_TOKEN", ""),
			"Content-Type":  "application/json",
		},
		RPS:   utils.EnvInt("CRM_RPS", 10),
		Burst: utils.EnvInt("CRM_BURST", 20),
	})
	return NewWithClient(client, logger, mapper)
}

// NewWithClient builds the adapter over an existing source client.
func NewWithClient(client *source.Client, logger *zap.Logger, mapper *identity.Mapper) *Adapter {
	return &Adapter{
		client:   client,
		mapper:   mapper,
		logger:   logger.With(zap.String("source", SourceName)),
		maxPages: source.DefaultMaxPages,
	}
}

// Name returns the adapter's source name.
func (a *Adapter) Name() string { return SourceName }

// Fetch pulls every closed-won deal whose close date falls inside the window
// (inclusive on both bounds; a zero bound is unbounded), then resolves each
// deal's collaborators with a secondary fetch. Deals in any other stage and
// deals with unparseable close dates are skipped.
func (a *Adapter) Fetch(ctx context.Context, w source.Window) ([]RawDeal, error) {
	var deals []RawDeal
	after := ""
	for page := 0; ; page++ {
		if page >= a.maxPages {
			return nil, &source.PaginationError{Source: SourceName, MaxPages: a.maxPages}
		}

		query := url.Values{
			"properties": []string{"dealname,amount,closedate,dealstage,hubspot_owner_id,hs_analytics_source,client_name"},
			"limit":      []string{strconv.Itoa(pageLimit)},
		}
		if after != "" {
			query.Set("after", after)
		}

		var resp dealsPage
		if err := a.client.GetJSON(ctx, "/objects/deals", query, &resp); err != nil {
			return nil, err
		}

		for _, deal := range resp.Results {
			if deal.Properties.DealStage != stageClosedWon {
				continue
			}
			closeDate, err := time.Parse(time.RFC3339, deal.Properties.CloseDate)
			if err != nil {
				a.logger.Warn("Skipping deal with unparseable close date",
					zap.String("deal_id", deal.ID),
					zap.String("closedate", deal.Properties.CloseDate))
				continue
			}
			if !w.Contains(closeDate) {
				continue
			}
			deal.closeDate = closeDate.UTC()
			deals = append(deals, deal)
		}

		if resp.Paging == nil || resp.Paging.Next.After == "" {
			break
		}
		after = resp.Paging.Next.After
	}

	for i := range deals {
		collaborators, err := a.fetchCollaborators(ctx, deals[i].ID)
		if err != nil {
			return nil, err
		}
		deals[i].Collaborators = collaborators
	}

	a.logger.Debug("Fetched closed-won deals", zap.Int("deals", len(deals)))
	return deals, nil
}

// fetchCollaborators reads the deal's collaborator custom property, a
// comma-separated list of CRM owner ids.
func (a *Adapter) fetchCollaborators(ctx context.Context, dealID string) ([]string, error) {
	query := url.Values{
		"properties":   []string{"hubspot_owner_id,deal_collaborators"},
		"associations": []string{"contacts"},
	}

	var resp collaboratorsResponse
	path := fmt.Sprintf("/objects/deals/%s", dealID)
	if err := a.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}

	raw := strings.Split(resp.Properties.Collaborators, ",")
	collaborators := make([]string, 0, len(raw))
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			collaborators = append(collaborators, id)
		}
	}
	return collaborators, nil
}

// Normalize fans each deal out to one Owner row plus one Collaborator row per
// collaborator. Every row carries the full un-split deal amount; splitting or
// weighting participation is left to the downstream bonus computation.
func (a *Adapter) Normalize(deals []RawDeal) []*report.DealRow {
	rows := make([]*report.DealRow, 0, len(deals))
	for _, deal := range deals {
		props := deal.Properties
		key := period.KeyOf(deal.closeDate)

		owner := &report.DealRow{
			DealID:              deal.ID,
			ConsultantID:        a.mapper.ResolveOwner(props.OwnerID),
			ParticipationType:   report.ParticipationOwner,
			DealName:            props.DealName,
			DealAmount:          parseAmount(props.Amount),
			CloseDate:           deal.closeDate,
			Quarter:             uint8(key.Quarter),
			Year:                uint16(key.Year),
			IsRecurringBusiness: utils.BoolToUInt8(isRecurring(props.DealName)),
			ClientName:          props.ClientName,
			Channel:             a.mapper.ResolveChannel(props.AnalyticsSource),
			DealType:            defaultDealType,
		}
		rows = append(rows, owner)

		for _, collabID := range deal.Collaborators {
			collab := *owner
			collab.ConsultantID = a.mapper.ResolveOwner(collabID)
			collab.ParticipationType = report.ParticipationCollaborator
			rows = append(rows, &collab)
		}
	}
	return rows
}

func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return amount
}

func isRecurring(dealName string) bool {
	name := strings.ToLower(dealName)
	for _, keyword := range recurringKeywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}
