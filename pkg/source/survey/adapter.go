// Package survey pulls customer-satisfaction form responses and normalizes
// them into satisfaction rows keyed by project.
package survey

import (
	"context"
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
	SourceName = "survey"

	rowIDPrefix = "SAT_"
)

// Question titles the pipeline reads from the form. Titles are matched
// case-insensitively by containment, so minor wording edits in the form
// don't break the sync.
const (
	questionProject = "Nombre del Proyecto"
	questionClient  = "Cliente"
	questionRating  = "Calificación General"
)

// RawForm is the form metadata: the items carrying question ids and titles.
type RawForm struct {
	Items []struct {
		Title        string `json:"title"`
		QuestionItem *struct {
			Question struct {
				QuestionID string `json:"questionId"`
			} `json:"question"`
		} `json:"questionItem"`
	} `json:"items"`
}

// Answer is one answer in a response, a tagged variant: exactly one of the
// three shapes is set depending on the question type.
type Answer struct {
	TextAnswers *struct {
		Answers []struct {
			Value string `json:"value"`
		} `json:"answers"`
	} `json:"textAnswers"`
	ScaleAnswer *struct {
		Answer int `json:"answer"`
	} `json:"scaleAnswer"`
	ChoiceAnswers *struct {
		Answers []struct {
			Value string `json:"value"`
		} `json:"answers"`
	} `json:"choiceAnswers"`
}

// Value extracts the answer's value as a string; the first value wins when
// several are present. Returns def when no shape carries a value.
func (a Answer) Value(def string) string {
	switch {
	case a.TextAnswers != nil && len(a.TextAnswers.Answers) > 0:
		return a.TextAnswers.Answers[0].Value
	case a.ScaleAnswer != nil:
		return strconv.Itoa(a.ScaleAnswer.Answer)
	case a.ChoiceAnswers != nil && len(a.ChoiceAnswers.Answers) > 0:
		return a.ChoiceAnswers.Answers[0].Value
	}
	return def
}

// RawResponse is one form response.
type RawResponse struct {
	ResponseID        string            `json:"responseId"`
	LastSubmittedTime string            `json:"lastSubmittedTime"`
	Answers           map[string]Answer `json:"answers"`
}

type responsesPage struct {
	Responses     []RawResponse `json:"responses"`
	NextPageToken string        `json:"nextPageToken"`
}

// questionIndex maps question titles to question ids for one form revision.
type questionIndex map[string]string

// lookup finds the question id whose title contains the wanted title,
// case-insensitively.
func (idx questionIndex) lookup(title string) (string, bool) {
	want := strings.ToLower(title)
	for t, id := range idx {
		if strings.Contains(strings.ToLower(t), want) {
			return id, true
		}
	}
	return "", false
}

// Adapter fetches and normalizes survey responses for one form.
type Adapter struct {
	client   *source.Client
	formID   string
	mapper   *identity.Mapper
	logger   *zap.Logger
	maxPages int
}

// New builds the adapter from SURVEY_* environment configuration.
func New(logger *zap.Logger, mapper *identity.Mapper) *Adapter {
	client := source.NewClient(source.Opts{
		Source:  SourceName,
		BaseURL: utils.Env("SURVEY_BASE_URL", "https://forms.googleapis.com/v1"),
		Headers: map[string]string{
			"Authorization": "Bearer " + utils.Env("SURVEY_ACCESS_TOKEN", ""),
		},
		RPS:   utils.EnvInt("SURVEY_RPS", 5),
		Burst: utils.EnvInt("SURVEY_BURST", 10),
	})
	return NewWithClient(client, utils.Env("SURVEY_FORM_ID", ""), logger, mapper)
}

// NewWithClient builds the adapter over an existing source client.
func NewWithClient(client *source.Client, formID string, logger *zap.Logger, mapper *identity.Mapper) *Adapter {
	return &Adapter{
		client:   client,
		formID:   formID,
		mapper:   mapper,
		logger:   logger.With(zap.String("source", SourceName)),
		maxPages: source.DefaultMaxPages,
	}
}

// Name returns the adapter's source name.
func (a *Adapter) Name() string { return SourceName }

// FetchForm reads the form metadata and builds the question title→id index.
// Built once per sync run so a form edit between runs is picked up.
func (a *Adapter) FetchForm(ctx context.Context) (questionIndex, error) {
	var form RawForm
	if err := a.client.GetJSON(ctx, "/forms/"+a.formID, nil, &form); err != nil {
		return nil, err
	}

	idx := make(questionIndex, len(form.Items))
	for _, item := range form.Items {
		if item.QuestionItem != nil {
			idx[item.Title] = item.QuestionItem.Question.QuestionID
		}
	}
	return idx, nil
}

// FetchResponses pulls every response for the form, following the page token.
func (a *Adapter) FetchResponses(ctx context.Context) ([]RawResponse, error) {
	path := "/forms/" + a.formID + "/responses"

	var responses []RawResponse
	token := ""
	for page := 0; ; page++ {
		if page >= a.maxPages {
			return nil, &source.PaginationError{Source: SourceName, MaxPages: a.maxPages}
		}

		var query url.Values
		if token != "" {
			query = url.Values{"pageToken": []string{token}}
		}

		var resp responsesPage
		if err := a.client.GetJSON(ctx, path, query, &resp); err != nil {
			return nil, err
		}

		responses = append(responses, resp.Responses...)
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}

	a.logger.Debug("Fetched survey responses", zap.Int("responses", len(responses)))
	return responses, nil
}

// Normalize converts responses into satisfaction rows. Malformed responses
// (unparseable submit time or rating) are logged and skipped; the returned
// count says how many were dropped. Per-record faults never fail the run.
func (a *Adapter) Normalize(responses []RawResponse, idx questionIndex) ([]*report.SatisfactionRow, int) {
	rows := make([]*report.SatisfactionRow, 0, len(responses))
	skipped := 0

	for _, resp := range responses {
		submitted, err := time.Parse(time.RFC3339, resp.LastSubmittedTime)
		if err != nil {
			a.logger.Warn("Skipping response with unparseable submit time",
				zap.String("response_id", resp.ResponseID),
				zap.String("last_submitted_time", resp.LastSubmittedTime))
			skipped++
			continue
		}
		submitted = submitted.UTC()

		rating, err := strconv.Atoi(a.answer(resp, idx, questionRating, "0"))
		if err != nil || rating < 0 {
			a.logger.Warn("Skipping response with unusable rating",
				zap.String("response_id", resp.ResponseID))
			skipped++
			continue
		}

		projectName := a.answer(resp, idx, questionProject, "")
		key := period.KeyOf(submitted)

		rows = append(rows, &report.SatisfactionRow{
			SatisfactionID:    rowIDPrefix + resp.ResponseID,
			ProjectID:         a.mapper.ResolveProject(projectName),
			ProjectName:       projectName,
			ClientName:        a.answer(resp, idx, questionClient, ""),
			SatisfactionStars: uint8(rating),
			SurveyDate:        submitted,
			Quarter:           uint8(key.Quarter),
			Year:              uint16(key.Year),
		})
	}

	return rows, skipped
}

func (a *Adapter) answer(resp RawResponse, idx questionIndex, title, def string) string {
	id, ok := idx.lookup(title)
	if !ok {
		return def
	}
	answer, ok := resp.Answers[id]
	if !ok {
		return def
	}
	return answer.Value(def)
}
