package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/internal/candidate"
	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

const llmJudgeSystemPrompt = "You are an address-matching judge. Given structured fields for a query address and a " +
	"list of candidate addresses, decide whether the query describes the same physical entity as one of the " +
	"candidates. Reply with JSON only, e.g. {\"decision\": \"SAME\", \"best_idx\": 0, \"reason\": \"...\", \"score\": 0.9}."

// LLMJudge arbitrates ambiguous candidate sets by delegating to a chat
// completion endpoint, mirroring LLMParser's transport but with its
// own prompt and response shape. It implements internal/judge.LLMJudge.
type LLMJudge struct {
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func NewLLMJudge(baseURL, modelName, apiKey string, timeout time.Duration, logger *zap.Logger) *LLMJudge {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if modelName == "" {
		modelName = "gpt-4.1-mini"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &LLMJudge{
		baseURL: baseURL,
		model:   modelName,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type llmJudgeCandidate struct {
	Record   *model.AddressRecord  `json:"record"`
	Parsed   *model.ParsedAddress  `json:"parsed"`
	PreScore float64               `json:"pre_score"`
}

type llmJudgePayload struct {
	Query struct {
		Record *model.AddressRecord `json:"record"`
		Parsed *model.ParsedAddress `json:"parsed"`
	} `json:"query"`
	Candidates []llmJudgeCandidate `json:"candidates"`
}

type llmJudgeVerdict struct {
	Decision string  `json:"decision"`
	BestIdx  int     `json:"best_idx"`
	Reason   string  `json:"reason"`
	Score    float64 `json:"score"`
}

// Judge asks the LLM to arbitrate query against candidates. It returns
// (nil, nil) rather than an error on any transport/decode failure so
// the caller's fallback chain takes over — the LLM pass is an
// enhancement, never a hard dependency.
func (j *LLMJudge) Judge(ctx context.Context, query candidate.Row, candidates []candidate.Row, preScores []model.MatchResult) (*model.MatchResult, error) {
	if j.apiKey == "" || len(candidates) == 0 {
		return nil, nil
	}

	payload := llmJudgePayload{}
	payload.Query.Record = query.Record
	payload.Query.Parsed = query.Parsed
	for i, c := range candidates {
		score := 0.0
		if i < len(preScores) {
			score = preScores[i].Score
		}
		payload.Candidates = append(payload.Candidates, llmJudgeCandidate{Record: c.Record, Parsed: c.Parsed, PreScore: score})
	}

	userBody, err := json.Marshal(payload)
	if err != nil {
		return nil, nil
	}

	content, err := j.chat(ctx, llmJudgeSystemPrompt, string(userBody))
	if err != nil {
		if j.logger != nil {
			j.logger.Warn("llm judge request failed", zap.Error(err))
		}
		return nil, nil
	}

	var verdict llmJudgeVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return nil, nil
	}

	bestIdx := verdict.BestIdx
	if bestIdx < 0 || bestIdx >= len(candidates) {
		bestIdx = 0
	}

	decision := model.DecisionDifferent
	if verdict.Decision == string(model.DecisionSame) {
		decision = model.DecisionSame
	}

	score := verdict.Score
	if score == 0 && bestIdx < len(preScores) {
		score = preScores[bestIdx].Score
	}

	var featureScores map[string]float64
	if bestIdx < len(preScores) {
		featureScores = preScores[bestIdx].FeatureScores
	}

	return &model.MatchResult{
		Decision:      decision,
		Score:         score,
		FeatureScores: featureScores,
		Evidence: map[string]interface{}{
			"judge":    "llm",
			"reason":   verdict.Reason,
			"best_rid": candidates[bestIdx].Record.RID,
		},
	}, nil
}

func (j *LLMJudge) chat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: j.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm judge: status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm judge: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
