package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	domai "github.com/bryanwahyu/trustlayer/internal/domain/ai"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
)

// ParseResult decodes a model response into a validated Result.
// content_type is always replaced by the classifier's bucket.
func ParseResult(raw string, contentType analysis.ContentType) (*analysis.Result, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return nil, domai.ErrEmptyResponse
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	for _, name := range RequiredFields {
		v, ok := fields[name]
		if !ok || string(v) == "null" {
			return nil, fmt.Errorf("response missing required field %q", name)
		}
	}

	var res analysis.Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	res.ContentType = contentType
	res.Normalize()
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return &res, nil
}
