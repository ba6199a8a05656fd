// Package client calls the prediction endpoint of a running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lifeboat/ml"
)

type PredictRequest struct {
	Pclass int     `json:"Pclass"`
	Sex    string  `json:"Sex"`
	Age    float64 `json:"Age"`
	Fare   float64 `json:"Fare"`
}

// APIError is returned for any non-200 response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	url        string
	httpClient *http.Client
}

func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Predict(ctx context.Context, req PredictRequest) (ml.Label, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
				Fields  []struct {
					Field   string `json:"field"`
					Message string `json:"message"`
				} `json:"fields"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Code = payload.Error.Code
			apiErr.Message = payload.Error.Message
			for _, f := range payload.Error.Fields {
				apiErr.Message += fmt.Sprintf("; %s %s", f.Field, f.Message)
			}
		}
		return 0, apiErr
	}

	var result struct {
		Prediction *int `json:"prediction"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if result.Prediction == nil || !ml.Label(*result.Prediction).Valid() {
		return 0, fmt.Errorf("unexpected response %s", bytes.TrimSpace(body))
	}
	return ml.Label(*result.Prediction), nil
}

// Render formats a label the way the prediction form shows it.
func Render(label ml.Label) string {
	return "Prediction: " + label.String()
}
