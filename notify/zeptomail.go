package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ZeptoMail sends through the ZeptoMail REST API
type ZeptoMail struct {
	apiKey string
	apiURL string
	from   Sender
	client *http.Client
}

func NewZeptoMail(apiKey, apiURL string, from Sender) *ZeptoMail {
	return &ZeptoMail{
		apiKey: apiKey,
		apiURL: apiURL,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type zeptoAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type zeptoRecipient struct {
	EmailAddress zeptoAddress `json:"email_address"`
}

type zeptoPayload struct {
	From     zeptoAddress     `json:"from"`
	To       []zeptoRecipient `json:"to"`
	Subject  string           `json:"subject"`
	HTMLBody string           `json:"htmlbody,omitempty"`
	TextBody string           `json:"textbody,omitempty"`
}

func (z *ZeptoMail) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(zeptoPayload{
		From:     zeptoAddress{Address: z.from.Address, Name: z.from.Name},
		To:       []zeptoRecipient{{EmailAddress: zeptoAddress{Address: msg.To, Name: msg.ToName}}},
		Subject:  msg.Subject,
		HTMLBody: msg.HTML,
		TextBody: msg.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-enczapikey "+z.apiKey)

	resp, err := z.client.Do(req)
	if err != nil {
		return fmt.Errorf("zeptomail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("zeptomail returned status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
