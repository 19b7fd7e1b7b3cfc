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

	"github.com/tanxiaobing-hl/address-audit/internal/model"
	"github.com/tanxiaobing-hl/address-audit/internal/textutil"
)

const llmParseSystemPrompt = "You are an address structuring parser. You must return a single valid JSON object, " +
	"with no comments or extra text. Fields: province, city, district, road, road_no, aoi, building, floor, room, " +
	"shop_name, intersection (an array of exactly 2 strings), direction, distance_m. Use null for missing fields."

const llmParseBatchSystemPrompt = "You are an address structuring parser. Parse the given addresses in input order " +
	"and return a JSON array of the same length. Each element must contain: province, city, district, road, road_no, " +
	"aoi, building, floor, room, shop_name, intersection (array of length 2), direction, distance_m. Use null for " +
	"missing fields. Output only the JSON array."

// LLMParser structures free-text addresses by delegating to a chat
// completion endpoint (OpenAI-compatible). It is the backend selected
// by "llm" in place of libpostal (the two are never chained), and the
// only backend that can recover shop names and intersection/direction
// cues from unstructured text.
type LLMParser struct {
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func NewLLMParser(baseURL, modelName, apiKey string, timeout time.Duration, logger *zap.Logger) *LLMParser {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if modelName == "" {
		modelName = "gpt-4.1-mini"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &LLMParser{
		baseURL: baseURL,
		model:   modelName,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type llmParsedFields struct {
	Province     *string  `json:"province"`
	City         *string  `json:"city"`
	District     *string  `json:"district"`
	Road         *string  `json:"road"`
	RoadNo       *string  `json:"road_no"`
	AOI          *string  `json:"aoi"`
	Building     *string  `json:"building"`
	Floor        *string  `json:"floor"`
	Room         *string  `json:"room"`
	ShopName     *string  `json:"shop_name"`
	Intersection []string `json:"intersection"`
	Direction    *string  `json:"direction"`
	DistanceM    *int     `json:"distance_m"`
}

func (p *LLMParser) Parse(ctx context.Context, raw string) (*model.ParsedAddress, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("llm parser: no API key configured")
	}

	sample, _ := json.Marshal(map[string]interface{}{
		"province": "安徽省", "city": "合肥市", "district": "蜀山区", "road": "创新大道",
		"road_no": "110", "aoi": "蜀峰广场", "building": "F9A", "floor": "2", "room": "203",
		"shop_name": "惠康大药房", "intersection": []string{"科学大道", "天波路"}, "direction": "西北", "distance_m": 40,
	})
	user := fmt.Sprintf("Parse this address into JSON:\nraw=%q\nexample: %s", raw, sample)

	content, err := p.chat(ctx, llmParseSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	var fields llmParsedFields
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, fmt.Errorf("llm parser: decode response: %w", err)
	}
	return buildParsed(raw, fields), nil
}

func (p *LLMParser) ParseBatch(ctx context.Context, raws []string) ([]*model.ParsedAddress, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("llm parser: no API key configured")
	}

	var lines bytes.Buffer
	for i, raw := range raws {
		fmt.Fprintf(&lines, "%d. %s\n", i+1, raw)
	}
	user := fmt.Sprintf("Address list:\n%s", lines.String())

	content, err := p.chat(ctx, llmParseBatchSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	var all []llmParsedFields
	if err := json.Unmarshal([]byte(content), &all); err != nil {
		return nil, fmt.Errorf("llm parser: decode batch response: %w", err)
	}
	if len(all) != len(raws) {
		return nil, fmt.Errorf("llm parser: expected %d results, got %d", len(raws), len(all))
	}

	out := make([]*model.ParsedAddress, len(raws))
	for i, raw := range raws {
		out[i] = buildParsed(raw, all[i])
	}
	return out, nil
}

func (p *LLMParser) chat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return "", fmt.Errorf("llm parser: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm parser: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("llm parser request failed", zap.Error(err))
		}
		return "", fmt.Errorf("llm parser: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm parser: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm parser: status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("llm parser: decode envelope: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm parser: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func buildParsed(raw string, f llmParsedFields) *model.ParsedAddress {
	p := &model.ParsedAddress{NormText: textutil.Normalize(raw)}
	assign(&p.Province, f.Province)
	assign(&p.City, f.City)
	assign(&p.District, f.District)
	assign(&p.Road, f.Road)
	assign(&p.RoadNo, f.RoadNo)
	assign(&p.AOI, f.AOI)
	assign(&p.Building, f.Building)
	assign(&p.Floor, f.Floor)
	assign(&p.Room, f.Room)
	assign(&p.ShopName, f.ShopName)
	assign(&p.Direction, f.Direction)

	if len(f.Intersection) == 2 {
		p.Intersection = &model.Intersection{A: f.Intersection[0], B: f.Intersection[1]}
	}
	if f.DistanceM != nil {
		d := *f.DistanceM
		p.DistanceM = &d
	}
	return p
}

func assign(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}
