package baselines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mwiater/groundedgeo/internal/appconfig"
	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
	"github.com/mwiater/groundedgeo/internal/logging"
)

const LLMName = "llm"

// ChatCompleter is the subset of *openai.Client the llm baseline uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLM prompts a chat model with the question and its evidence.
type LLM struct {
	client     ChatCompleter
	model      string
	sampling   appconfig.SamplingParams
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	closedBook bool
}

// LLMOption customises an LLM baseline.
type LLMOption func(*LLM)

// WithChatClient replaces the OpenAI client.
func WithChatClient(c ChatCompleter) LLMOption {
	return func(l *LLM) { l.client = c }
}

// WithRetryDelay sets the base delay of the linear backoff.
func WithRetryDelay(d time.Duration) LLMOption {
	return func(l *LLM) { l.retryDelay = d }
}

// NewLLM builds the llm baseline from cfg. Without an injected client it
// needs an API key, except for custom base URLs (local servers often accept
// any key).
func NewLLM(cfg appconfig.LLMConfig, opts ...LLMOption) (*LLM, error) {
	l := &LLM{
		model:      cfg.ModelName(),
		sampling:   cfg.ResolvedSampling(),
		timeout:    cfg.RequestTimeout(),
		maxRetries: cfg.RetryAttempts(),
		retryDelay: time.Second,
		closedBook: cfg.ClosedBook,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client != nil {
		return l, nil
	}

	key := cfg.ResolvedAPIKey()
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if key == "" && baseURL == "" {
		return nil, errors.New("llm: no API key configured (set llm.apiKey or OPENAI_API_KEY)")
	}
	clientCfg := openai.DefaultConfig(key)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	l.client = openai.NewClientWithConfig(clientCfg)
	return l, nil
}

func (l *LLM) Name() string { return LLMName + ":" + l.model }

// EvidenceFor hides all evidence in closed-book mode.
func (l *LLM) EvidenceFor(q dataset.Query) []dataset.Evidence {
	if l.closedBook {
		return nil
	}
	return q.GoldEvidence
}

func (l *LLM) Generate(ctx context.Context, q dataset.Query, evidence []dataset.Evidence) (harness.Prediction, error) {
	req := l.buildRequest(q, evidence)

	var (
		resp    openai.ChatCompletionResponse
		lastErr error
	)
	attempts := l.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			logging.Debugf("llm retry %d/%d for %s: %v", attempt, l.maxRetries, q.ID, lastErr)
			select {
			case <-ctx.Done():
				return harness.Prediction{}, ctx.Err()
			case <-time.After(l.retryDelay * time.Duration(attempt)):
			}
		}

		resp, lastErr = l.complete(ctx, req)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return harness.Prediction{}, ctx.Err()
		}
		if !isRetryable(lastErr) {
			return harness.Prediction{}, fmt.Errorf("non-retryable error: %w", lastErr)
		}
	}
	if lastErr != nil {
		return harness.Prediction{}, fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	if len(resp.Choices) == 0 {
		return harness.Prediction{}, errors.New("llm: empty completion")
	}

	content := resp.Choices[0].Message.Content
	logging.LogPrediction(l.Name(), q.Split, q.ID, content)
	p := parseAnswer(content)
	p.QueryID = q.ID
	p.SystemName = l.Name()
	return p, nil
}

func (l *LLM) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.client.CreateChatCompletion(reqCtx, req)
}

const systemPrompt = `You answer geography questions using only the evidence provided.
Reply with a single JSON object:
{"answer": string, "refused": bool, "asked_clarification": bool,
 "flagged_conflict": bool, "as_of_date": string, "preferred_official_source": bool,
 "evidence_ids": [string]}
Cite the ids of the evidence you relied on. State the date a fact holds as of
when the evidence gives one. Flag conflicts when sources disagree. Ask for
clarification when the place named is ambiguous. Refuse when you cannot answer.`

func (l *LLM) buildRequest(q dataset.Query, evidence []dataset.Evidence) openai.ChatCompletionRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", q.Question)
	if len(evidence) == 0 {
		b.WriteString("\nNo evidence is available.\n")
	} else {
		b.WriteString("\nEvidence:\n")
		for _, ev := range evidence {
			fmt.Fprintf(&b, "- id=%s source=%s official=%t", ev.ID, ev.Source, ev.Official)
			if ev.AsOf != "" {
				fmt.Fprintf(&b, " as_of=%s", ev.AsOf)
			}
			fmt.Fprintf(&b, "\n  %s\n", strings.TrimSpace(ev.Text))
		}
	}

	req := openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Seed: l.sampling.Seed,
	}
	if l.sampling.Temperature != nil {
		req.Temperature = *l.sampling.Temperature
	}
	if l.sampling.TopP != nil {
		req.TopP = *l.sampling.TopP
	}
	if l.sampling.MaxTokens != nil {
		req.MaxTokens = *l.sampling.MaxTokens
	}
	return req
}

type llmAnswer struct {
	Answer                  string   `json:"answer"`
	Refused                 bool     `json:"refused"`
	AskedClarification      bool     `json:"asked_clarification"`
	FlaggedConflict         bool     `json:"flagged_conflict"`
	AsOfDate                string   `json:"as_of_date"`
	PreferredOfficialSource bool     `json:"preferred_official_source"`
	EvidenceIDs             []string `json:"evidence_ids"`
}

// parseAnswer maps the model's JSON reply onto a Prediction. Anything that
// does not decode is kept verbatim as a plain-text answer.
func parseAnswer(content string) harness.Prediction {
	raw := stripCodeFence(content)
	var a llmAnswer
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return harness.Prediction{RawAnswer: strings.TrimSpace(content)}
	}
	return harness.Prediction{
		RawAnswer:               a.Answer,
		Refused:                 a.Refused,
		AskedClarification:      a.AskedClarification,
		FlaggedConflict:         a.FlaggedConflict,
		IncludedAsOfDate:        strings.TrimSpace(a.AsOfDate) != "",
		PreferredOfficialSource: a.PreferredOfficialSource,
		EvidenceIDsUsed:         a.EvidenceIDs,
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// isRetryable reports rate limits, server errors and per-request timeouts.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
