// Package claude implements the classification backend on the Claude API.
package claude

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/sift/internal/classify"
)

const responseTokens = 256

// maxMessageChars bounds how much message text is sent to the model.
const maxMessageChars = 12000

// Client calls Claude to classify message text. It implements
// classify.Backend.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a Claude classification client for the given API key and
// model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// ClassifyRaw sends the message text to Claude and parses the three-line
// response into the gateway's strict intermediate shape.
func (c *Client) ClassifyRaw(ctx context.Context, text string) (*classify.RawResult, error) {
	if len(text) > maxMessageChars {
		text = text[:maxMessageChars]
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: responseTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(text))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return parseResponse(sb.String())
}

func systemPrompt() string {
	return "You classify inbound loan-servicing emails into a fixed request-type taxonomy. " +
		"Answer with exactly the three lines requested and nothing else."
}

func buildPrompt(text string) string {
	return fmt.Sprintf(`Analyze the following email and determine the primary request type from the predefined categories: %s.

Email text:
%s

Return the result on three lines:
First line: Primary Request Type
Second line: Sub Request Type (if applicable; if not, leave blank).
Third line: Confidence: <decimal number between 0 and 1>`,
		strings.Join(classify.RequestTypes, ", "), text)
}

var confidenceRe = regexp.MustCompile(`(?i)Confidence:\s*([\d.]+)`)

// parseResponse parses the three-line classification answer: primary label
// first, optional sub label in the middle, and a "Confidence: <n>" line.
// Anything that does not fit is classify.ErrMalformedResponse.
func parseResponse(raw string) (*classify.RawResult, error) {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty response", classify.ErrMalformedResponse)
	}

	confIdx := -1
	var confidence float64
	for i, l := range lines {
		m := confidenceRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad confidence %q", classify.ErrMalformedResponse, m[1])
		}
		confIdx, confidence = i, v
		break
	}
	if confIdx <= 0 {
		return nil, fmt.Errorf("%w: missing confidence line", classify.ErrMalformedResponse)
	}

	r := &classify.RawResult{
		Label:      lines[0],
		Confidence: confidence,
	}
	if confIdx >= 2 {
		r.SubLabel = lines[1]
	}
	return r, nil
}
