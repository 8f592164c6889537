package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrGateway = errors.New("push: gateway error")

// HTTPSender posts batches to a JSON push gateway. The gateway answers with
// one result per message in request order.
type HTTPSender struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewHTTPSender(endpoint, apiKey string) *HTTPSender {
	return &HTTPSender{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type gatewayRequest struct {
	Messages []Message `json:"messages"`
}

type gatewayResult struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type gatewayResponse struct {
	Results []gatewayResult `json:"results"`
}

func (s *HTTPSender) SendBatch(ctx context.Context, msgs []Message) ([]Result, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(gatewayRequest{Messages: msgs})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrGateway, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}
	var parsed gatewayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrGateway, err)
	}
	out := make([]Result, len(msgs))
	for i, m := range msgs {
		out[i] = Result{Token: m.Token, ErrorCode: CodeUnavailable}
		if i >= len(parsed.Results) {
			continue
		}
		r := parsed.Results[i]
		out[i].Success = r.Success
		out[i].ErrorCode = ""
		if !r.Success {
			out[i].ErrorCode = CodeUnavailable
			if r.Error != nil && r.Error.Code != "" {
				out[i].ErrorCode = r.Error.Code
			}
		}
	}
	return out, nil
}
