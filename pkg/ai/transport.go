package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"aira-go/pkg/log"
)

const (
	maxAttempts    = 3
	initialBackoff = 2 * time.Second
	liveTimeout    = 15 * time.Second
	probeTimeout   = 10 * time.Second
)

// postJSON 发送一次出站调用并解析 JSON 响应。
// 仅对 HTTP 429 做指数退避重试（2s、4s），其余错误状态立即失败；
// 三次尝试全部被限流同样按失败处理。
func (c *client) postJSON(ctx context.Context, httpClient *http.Client, url string, headers map[string]string, payload map[string]interface{}) (map[string]interface{}, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := newJSONRequest(ctx, url, headers, body)
		if err != nil {
			return nil, nil, err
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to call ai api: %w", err)
		}
		respBody, err := readBody(resp)
		if err != nil {
			return nil, nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxAttempts {
			log.Warnf("Rate limit hit (429). Retrying in %s... (attempt %d/%d)", backoff, attempt, maxAttempts)
			c.sleep(backoff)
			backoff *= 2
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, nil, fmt.Errorf("ai api returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		}

		var data map[string]interface{}
		if err := json.Unmarshal(respBody, &data); err != nil {
			return nil, nil, fmt.Errorf("failed to decode ai response: %w", err)
		}
		return data, respBody, nil
	}

	return nil, nil, errors.New("max retries reached for ai api")
}

func newJSONRequest(ctx context.Context, url string, headers map[string]string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create ai request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ai response: %w", err)
	}
	return respBody, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
