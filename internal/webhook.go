package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

type InboundMessage struct {
	From string
	Text string
}

var optOutCommands = []string{"stop", "unsubscribe", "optout"}

func IsOptOutCommand(text string) bool {
	for _, cmd := range optOutCommands {
		if strings.EqualFold(text, cmd) {
			return true
		}
	}
	return false
}

// metaEnvelope is the WhatsApp Cloud API notification shape.
type metaEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseInbound extracts sender and text from a chat provider payload. It
// understands Twilio style {From, Body} (JSON or form encoded), the generic
// {from, text} shape, and the WhatsApp Cloud API envelope. A payload with no
// recognizable sender yields an empty From.
func ParseInbound(contentType string, body []byte) (InboundMessage, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return InboundMessage{}, fmt.Errorf("parse form payload: %w", err)
		}
		fields := make(map[string]any, len(values))
		for k := range values {
			fields[k] = values.Get(k)
		}
		return fromFields(fields), nil
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return InboundMessage{}, nil
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return InboundMessage{}, fmt.Errorf("parse json payload: %w", err)
	}

	if _, ok := fields["entry"]; ok && !hasTwilioFields(fields) {
		var env metaEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return InboundMessage{}, fmt.Errorf("parse cloud api payload: %w", err)
		}
		for _, entry := range env.Entry {
			for _, change := range entry.Changes {
				for _, msg := range change.Value.Messages {
					if msg.From != "" {
						return InboundMessage{From: msg.From, Text: strings.TrimSpace(msg.Text.Body)}, nil
					}
				}
			}
		}
		return InboundMessage{}, nil
	}

	return fromFields(fields), nil
}

func hasTwilioFields(fields map[string]any) bool {
	return stringField(fields, "From") != "" && stringField(fields, "Body") != ""
}

func fromFields(fields map[string]any) InboundMessage {
	if hasTwilioFields(fields) {
		return InboundMessage{
			From: stringField(fields, "From"),
			Text: strings.TrimSpace(stringField(fields, "Body")),
		}
	}
	return InboundMessage{
		From: stringField(fields, "from"),
		Text: strings.TrimSpace(stringField(fields, "text")),
	}
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

type SessionAdvancer interface {
	Advance(ctx context.Context, respondentId uuid.UUID, text string) error
}

type WebhookService struct {
	registry *RespondentRegistry
	engine   SessionAdvancer
	log      *slog.Logger
}

func NewWebhookService(registry *RespondentRegistry, engine SessionAdvancer) *WebhookService {
	return &WebhookService{
		registry: registry,
		engine:   engine,
		log:      slog.Default(),
	}
}

// HandleInbound routes one inbound chat message: opt-out commands are
// recorded and stop there, anything else advances the sender's survey.
func (s *WebhookService) HandleInbound(ctx context.Context, msg InboundMessage) error {
	if msg.From == "" {
		s.log.Debug("Ignoring inbound message without sender")
		return nil
	}

	phoneHash := HashContact(msg.From)

	if IsOptOutCommand(msg.Text) {
		return s.registry.RecordOptOut(ctx, phoneHash)
	}

	respondent, err := s.registry.Upsert(ctx, phoneHash)
	if err != nil {
		return err
	}

	if err := s.engine.Advance(ctx, respondent.Id, msg.Text); err != nil {
		return fmt.Errorf("advance session: %w", err)
	}
	return nil
}
