package webrtc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// exchangeSDP posts the local offer to the realtime endpoint and returns
// the remote answer. Any non-success status surfaces as an error carrying
// the status code and response body.
func exchangeSDP(ctx context.Context, client *http.Client, endpoint, apiKey, model, offer string) (string, error) {
	target := endpoint
	if model != "" {
		target = fmt.Sprintf("%s?model=%s", endpoint, url.QueryEscape(model))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(offer))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("offer exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(answer), nil
}
