// Package llm speaks the OpenAI-compatible chat-completions protocol
// with tool calling. It is the only package that knows the reasoning
// service's wire format; the rest of the program deals in protocol turns.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"autoav/pkg/config"
	"autoav/pkg/protocol"
	"autoav/pkg/tools"
)

// Reply is one assistant turn as decoded off the wire. FinishReason is
// the service's own stop marker ("stop", "tool_calls", "length").
type Reply struct {
	Content      string
	ToolCalls    []protocol.ToolRequest
	FinishReason string
	TokensUsed   int
}

// Completer produces assistant replies for a conversation. Satisfied by
// *Client; sessions accept the interface so tests can script replies.
type Completer interface {
	Complete(ctx context.Context, system string, turns []protocol.Turn, defs []tools.Definition) (Reply, error)
}

// Client is an HTTP chat-completions client.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

const requestTimeout = 120 * time.Second

// New builds a client from the resolved configuration. The base URL is
// normalized to end in /v1 with no trailing slash.
func New(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: normalizeBaseURL(cfg.BaseURL),
		model:   cfg.Model,
		apiKey:  cfg.APIKey(),
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		log: log.With().Str("component", "llm").Logger(),
	}
}

func normalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return config.DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	if !strings.HasSuffix(trimmed, "/v1") {
		trimmed += "/v1"
	}
	return trimmed
}

// --- wire types ---

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string          `json:"type"`
	Function wireToolSchema  `json:"function"`
}

type wireToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Tools    []wireTool    `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the conversation and returns the next assistant turn.
// Every failure mode — transport, HTTP status, schema — comes back as a
// ReasoningServiceError so the session can decide whether to retry.
func (c *Client) Complete(ctx context.Context, system string, turns []protocol.Turn, defs []tools.Definition) (Reply, error) {
	msgs := make([]wireMessage, 0, len(turns)+1)
	if system != "" {
		msgs = append(msgs, wireMessage{Role: "system", Content: system})
	}
	for _, t := range turns {
		msgs = append(msgs, encodeTurn(t))
	}

	wts := make([]wireTool, 0, len(defs))
	for _, d := range defs {
		wts = append(wts, wireTool{Type: "function", Function: wireToolSchema{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		}})
	}

	payload, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs, Tools: wts})
	if err != nil {
		return Reply{}, &protocol.ReasoningServiceError{Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Reply{}, &protocol.ReasoningServiceError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, &protocol.ReasoningServiceError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Reply{}, &protocol.ReasoningServiceError{Reason: "read response", Err: err}
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Reply{}, &protocol.ReasoningServiceError{Reason: "decode response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := fmt.Sprintf("status %s", resp.Status)
		if decoded.Error != nil {
			reason = fmt.Sprintf("status %s: %s", resp.Status, decoded.Error.Message)
		}
		return Reply{}, &protocol.ReasoningServiceError{Reason: reason}
	}
	if len(decoded.Choices) == 0 {
		return Reply{}, &protocol.ReasoningServiceError{Reason: "response has no choices"}
	}

	choice := decoded.Choices[0]
	calls := make([]protocol.ToolRequest, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		calls = append(calls, protocol.ToolRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	c.log.Debug().
		Int("tool_calls", len(calls)).
		Str("finish_reason", choice.FinishReason).
		Int("total_tokens", decoded.Usage.TotalTokens).
		Msg("completion received")

	return Reply{
		Content:      choice.Message.Content,
		ToolCalls:    calls,
		FinishReason: strings.TrimSpace(choice.FinishReason),
		TokensUsed:   decoded.Usage.TotalTokens,
	}, nil
}

// encodeTurn maps a transcript turn onto the wire. Tool requests carry
// their arguments as a JSON string per the chat-completions schema.
func encodeTurn(t protocol.Turn) wireMessage {
	msg := wireMessage{Role: string(t.Role), Content: t.Content, ToolCallID: t.ToolCallID}
	for _, call := range t.ToolCalls {
		args := string(call.Arguments)
		if args == "" {
			args = "{}"
		}
		msg.ToolCalls = append(msg.ToolCalls, wireToolCall{
			ID:   call.ID,
			Type: "function",
			Function: wireFunction{Name: call.Name, Arguments: args},
		})
	}
	return msg
}
