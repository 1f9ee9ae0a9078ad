// Package whatsapp adapts the WhatsApp Cloud API to the chat transport
// interfaces: an outbound Graph API sender and an inbound webhook server.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mort/domain/interfaces"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v19.0"

// GraphSender sends messages through the WhatsApp Cloud API. It implements
// interfaces.Messenger.
type GraphSender struct {
	baseURL string
	token   string
	phoneID string
	http    *http.Client
}

// NewGraphSender creates a sender for the given phone number ID
func NewGraphSender(token, phoneID string) *GraphSender {
	return &GraphSender{
		baseURL: defaultGraphBaseURL,
		token:   token,
		phoneID: phoneID,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type textPayload struct {
	Body string `json:"body"`
}

type replyButton struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

type interactivePayload struct {
	Type   string `json:"type"`
	Header *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"header,omitempty"`
	Body struct {
		Text string `json:"text"`
	} `json:"body"`
	Footer *struct {
		Text string `json:"text"`
	} `json:"footer,omitempty"`
	Action struct {
		Buttons []replyButton `json:"buttons"`
	} `json:"action"`
}

type outboundMessage struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
}

// SendText sends a plain text message
func (s *GraphSender) SendText(ctx context.Context, chatID, body string) error {
	return s.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               chatID,
		Type:             "text",
		Text:             &textPayload{Body: body},
	})
}

// SendMenu sends an interactive reply-button message. The Cloud API caps
// reply buttons at three, which the wizards are designed around.
func (s *GraphSender) SendMenu(ctx context.Context, chatID string, menu interfaces.Menu) error {
	interactive := &interactivePayload{Type: "button"}
	interactive.Body.Text = menu.Body

	if menu.Header != "" {
		interactive.Header = &struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: "text", Text: menu.Header}
	}
	if menu.Footer != "" {
		interactive.Footer = &struct {
			Text string `json:"text"`
		}{Text: menu.Footer}
	}
	for _, button := range menu.Buttons {
		rb := replyButton{Type: "reply"}
		rb.Reply.ID = button.ID
		rb.Reply.Title = button.Title
		interactive.Action.Buttons = append(interactive.Action.Buttons, rb)
	}

	return s.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               chatID,
		Type:             "interactive",
		Interactive:      interactive,
	})
}

func (s *GraphSender) post(ctx context.Context, message outboundMessage) error {
	encoded, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("graph API returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
