package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	domai "github.com/bryanwahyu/trustlayer/internal/domain/ai"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	"github.com/bryanwahyu/trustlayer/internal/domain/media"
	"github.com/bryanwahyu/trustlayer/internal/infra/ai/prompt"
)

const (
	maxTokens    = 2048
	DefaultModel = "gpt-4o-mini"
)

type Client struct {
	*openai.Client
	Model    string
	registry *chamber.Registry
}

func NewClient(apiKey, model string, registry *chamber.Registry) *Client {
	return NewClientWithConfig(openai.DefaultConfig(apiKey), model, registry)
}

// NewClientWithConfig allows a custom base URL (proxies, tests).
func NewClientWithConfig(cfg openai.ClientConfig, model string, registry *chamber.Registry) *Client {
	if registry == nil {
		registry = chamber.NewRegistry()
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, registry: registry}
}

func (c *Client) Analyze(ctx context.Context, upload analysis.Upload, contentType analysis.ContentType, id chamber.ID) (*analysis.Result, error) {
	userMsg, err := userMessage(upload, contentType)
	if err != nil {
		return nil, err
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   prompt.SchemaName,
				Schema: resultSchema(),
				Strict: true,
			},
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt(c.registry.Instruction(id))},
			userMsg,
		},
	}
	// reasoning models take MaxCompletionTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if isQuota(err) {
			return nil, fmt.Errorf("failed to create chat completion: %w", domai.ErrQuotaExceeded)
		}
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, domai.ErrEmptyResponse
	}
	return prompt.ParseResult(resp.Choices[0].Message.Content, contentType)
}

// userMessage attaches images as data URLs and plain text inline.
// Chat completions cannot take other binary media.
func userMessage(upload analysis.Upload, contentType analysis.ContentType) (openai.ChatCompletionMessage, error) {
	instruction := prompt.GetUserPrompt(contentType, upload.Name)
	switch {
	case contentType == analysis.ContentImage:
		url := "data:" + upload.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(upload.Data)
		return openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: instruction},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailAuto}},
			},
		}, nil
	case media.IsPlainText(upload.MIMEType):
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: instruction + "\n\n---\n" + string(upload.Data),
		}, nil
	default:
		return openai.ChatCompletionMessage{}, fmt.Errorf("openai %s: %w", upload.MIMEType, domai.ErrUnsupportedMedia)
	}
}

func resultSchema() *jsonschema.Definition {
	list := jsonschema.Definition{Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}}
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			prompt.FieldProbability: {Type: jsonschema.Integer, Description: "0 to 100"},
			prompt.FieldContentType: {Type: jsonschema.String, Enum: prompt.ContentTypeEnum},
			prompt.FieldRisk:        {Type: jsonschema.String, Enum: prompt.LevelEnum},
			prompt.FieldArtifacts:   list,
			prompt.FieldModels:      list,
			prompt.FieldConfidence:  {Type: jsonschema.String, Enum: prompt.LevelEnum},
			prompt.FieldSummary:     {Type: jsonschema.String},
			prompt.FieldLimitations: {Type: jsonschema.String},
		},
		Required:             prompt.RequiredFields,
		AdditionalProperties: false,
	}
}

func isQuota(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
