package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"authrelay/internal/downstream"
)

const defaultGmailEndpoint = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"

var headerBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// sanitizeHeader flattens CR/LF out of a header value so caller-supplied
// input cannot inject additional MIME headers into the message.
func sanitizeHeader(v string) string {
	return headerBreaks.Replace(v)
}

// buildRawMessage assembles an RFC 2822 message and encodes it the way the
// Gmail API expects: base64url without padding.
func buildRawMessage(from, to, subject, body string) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", sanitizeHeader(from))
	fmt.Fprintf(&msg, "To: %s\r\n", sanitizeHeader(to))
	fmt.Fprintf(&msg, "Subject: %s\r\n", sanitizeHeader(subject))
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return base64.RawURLEncoding.EncodeToString([]byte(msg.String()))
}

// sendGmail submits the message through the Gmail API using the upstream
// access token carried in the capability context.
func (g *Gateway) sendGmail(ctx context.Context, props *downstream.Props, to, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"raw": buildRawMessage(props.Email, to, subject, body),
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.gmailEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+props.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gmail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gmail API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
