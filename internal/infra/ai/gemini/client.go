// Package gemini is the live synthesizer backed by Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	domai "github.com/bryanwahyu/trustlayer/internal/domain/ai"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	"github.com/bryanwahyu/trustlayer/internal/domain/media"
	"github.com/bryanwahyu/trustlayer/internal/infra/ai/prompt"
)

const DefaultModel = "gemini-2.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models   generator
	model    string
	registry *chamber.Registry
}

func NewClient(ctx context.Context, apiKey, model string, registry *chamber.Registry) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newWithGenerator(gc.Models, model, registry), nil
}

func newWithGenerator(g generator, model string, registry *chamber.Registry) *Client {
	if model == "" {
		model = DefaultModel
	}
	if registry == nil {
		registry = chamber.NewRegistry()
	}
	return &Client{models: g, model: model, registry: registry}
}

func (c *Client) Model() string { return c.model }

func (c *Client) Analyze(ctx context.Context, upload analysis.Upload, contentType analysis.ContentType, id chamber.ID) (*analysis.Result, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			uploadPart(upload),
			genai.NewPartFromText(prompt.GetUserPrompt(contentType, upload.Name)),
		}, genai.RoleUser),
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, buildConfig(c.registry.Instruction(id)))
	if err != nil {
		if isQuota(err) {
			return nil, fmt.Errorf("gemini generate: %w", domai.ErrQuotaExceeded)
		}
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return nil, domai.ErrEmptyResponse
	}
	return prompt.ParseResult(resp.Text(), contentType)
}

// uploadPart sends plain text as a decoded string and everything else,
// PDFs included, as inline bytes.
func uploadPart(upload analysis.Upload) *genai.Part {
	if media.IsPlainText(upload.MIMEType) {
		return genai.NewPartFromText(strings.ToValidUTF8(string(upload.Data), "\uFFFD"))
	}
	return genai.NewPartFromBytes(upload.Data, upload.MIMEType)
}

func buildConfig(instruction string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.GetSystemPrompt(instruction), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    resultSchema(),
	}
}

func resultSchema() *genai.Schema {
	list := &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			prompt.FieldProbability: {
				Type:    genai.TypeInteger,
				Minimum: genai.Ptr(0.0),
				Maximum: genai.Ptr(100.0),
			},
			prompt.FieldContentType: {Type: genai.TypeString, Enum: prompt.ContentTypeEnum},
			prompt.FieldRisk:        {Type: genai.TypeString, Enum: prompt.LevelEnum},
			prompt.FieldArtifacts:   list,
			prompt.FieldModels:      list,
			prompt.FieldConfidence:  {Type: genai.TypeString, Enum: prompt.LevelEnum},
			prompt.FieldSummary:     {Type: genai.TypeString},
			prompt.FieldLimitations: {Type: genai.TypeString},
		},
		Required:         prompt.RequiredFields,
		PropertyOrdering: prompt.RequiredFields,
	}
}

func isQuota(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}
