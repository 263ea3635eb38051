package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/autostock/autostock-api/services"
)

const descriptionPrompt = `You are an expert in stock photography and image analysis.
Analyze this image and provide a detailed description suitable for stock photography.
Describe the main subject and composition, note key visual elements that make it
suitable for stock platforms, identify potential commercial or editorial use cases,
and highlight any distinctive features. Keep the description professional, objective
and concise.`

// DescriptionClient generates stock-photography descriptions for images via
// the Gemini API.
type DescriptionClient struct {
	apiKey string
	model  string
}

func NewDescriptionClient(apiKey, model string) *DescriptionClient {
	return &DescriptionClient{apiKey: apiKey, model: model}
}

// GenerateImageDescription sends the image to the vision model and returns
// the generated text verbatim. The input is a base64 payload, with or without
// a data-URI prefix. Failures are classified but never retried here.
func (c *DescriptionClient) GenerateImageDescription(ctx context.Context, base64Image string) (string, error) {
	if c.apiKey == "" {
		return "", &services.UpstreamError{
			Service: "gemini",
			Kind:    services.UpstreamBadCredentials,
			Err:     fmt.Errorf("GEMINI_API_KEY is not set"),
		}
	}

	mimeSubtype, data, err := decodeImagePayload(base64Image)
	if err != nil {
		return "", &services.UpstreamError{
			Service: "gemini",
			Kind:    services.UpstreamInvalidInput,
			Err:     err,
		}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx,
		genai.Text(descriptionPrompt),
		genai.ImageData(mimeSubtype, data),
	)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &services.UpstreamError{
			Service: "gemini",
			Kind:    services.UpstreamUnknown,
			Err:     fmt.Errorf("no description generated"),
		}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", &services.UpstreamError{
			Service: "gemini",
			Kind:    services.UpstreamUnknown,
			Err:     fmt.Errorf("response contained no text parts"),
		}
	}

	return sb.String(), nil
}

// decodeImagePayload strips an optional data-URI prefix and decodes the
// base64 body, returning the mime subtype ("jpeg" when unknown) and bytes.
func decodeImagePayload(payload string) (string, []byte, error) {
	subtype := "jpeg"

	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return "", nil, fmt.Errorf("malformed data URI")
		}
		header := payload[:idx]
		payload = payload[idx+1:]

		if strings.HasPrefix(header, "data:image/") {
			rest := strings.TrimPrefix(header, "data:image/")
			if semi := strings.Index(rest, ";"); semi >= 0 {
				subtype = rest[:semi]
			}
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 image encoding: %w", err)
	}
	return subtype, data, nil
}

func classifyGeminiError(err error) error {
	msg := strings.ToLower(err.Error())
	kind := services.UpstreamUnknown
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit"):
		kind = services.UpstreamRateLimited
	case strings.Contains(msg, "api key") || strings.Contains(msg, "401") || strings.Contains(msg, "permission"):
		kind = services.UpstreamBadCredentials
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "400"):
		kind = services.UpstreamInvalidInput
	}
	return &services.UpstreamError{Service: "gemini", Kind: kind, Err: err}
}
