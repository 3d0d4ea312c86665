package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultGatewayURL is the Fonnte send endpoint.
const DefaultGatewayURL = "https://api.fonnte.com/send"

type gatewayResponse struct {
	Status bool   `json:"status"`
	Reason string `json:"reason"`
}

// GatewaySender posts messages to a WhatsApp HTTP gateway that takes a
// target/message form and an Authorization token.
type GatewaySender struct {
	client *resty.Client
	url    string
}

func NewGatewaySender(url, token string) *GatewaySender {
	if url == "" {
		url = DefaultGatewayURL
	}
	client := resty.New().
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Authorization", token).
		SetHeader("Accept", "application/json")
	return &GatewaySender{client: client, url: url}
}

func (g *GatewaySender) Send(ctx context.Context, phone, message string) error {
	var body gatewayResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"target":  phone,
			"message": message,
		}).
		SetResult(&body).
		Post(g.url)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("gateway returned %d", resp.StatusCode())
	}
	if !body.Status {
		if body.Reason == "" {
			return errors.New("gateway rejected message")
		}
		return fmt.Errorf("gateway rejected message: %s", body.Reason)
	}
	return nil
}
