package whatsapp

import (
	"context"
	"net/http"

	"mort/config"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// MessageHandler consumes normalized inbound messages. The bot implements it.
type MessageHandler interface {
	HandleUserAction(ctx context.Context, chatID, text, buttonID string)
}

// Webhook is the inbound side of the WhatsApp Cloud API: Meta calls it with
// a verification handshake on GET and message notifications on POST.
type Webhook struct {
	handler     MessageHandler
	verifyToken string
}

// NewWebhook creates the webhook endpoint handlers
func NewWebhook(handler MessageHandler, cfg *config.Config) *Webhook {
	return &Webhook{handler: handler, verifyToken: cfg.WhatsAppVerifyToken}
}

// Register mounts the webhook routes on a gin engine
func (w *Webhook) Register(router *gin.Engine) {
	router.GET("/webhook", w.verify)
	router.POST("/webhook", w.receive)
}

// verify answers Meta's subscription handshake
func (w *Webhook) verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == w.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Inbound notification payload, reduced to the fields we consume
type notification struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		ButtonReply *struct {
			ID string `json:"id"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

// receive acknowledges the notification immediately and processes the
// messages in the background. Meta retries deliveries that do not get a
// timely 200, so slow chain calls must never block the response.
func (w *Webhook) receive(c *gin.Context) {
	var payload notification
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.WithError(err).Warn("Ignoring malformed webhook payload")
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusOK)

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, message := range change.Value.Messages {
				chatID, text, buttonID, ok := normalize(message)
				if !ok {
					continue
				}
				go w.handler.HandleUserAction(context.Background(), chatID, text, buttonID)
			}
		}
	}
}

// normalize flattens an inbound message to (chatID, text, buttonID).
// Unsupported message types (media, reactions, locations) are dropped.
func normalize(message inboundMessage) (chatID, text, buttonID string, ok bool) {
	switch message.Type {
	case "text":
		if message.Text == nil {
			return "", "", "", false
		}
		return message.From, message.Text.Body, "", true
	case "interactive":
		if message.Interactive == nil || message.Interactive.ButtonReply == nil {
			return "", "", "", false
		}
		return message.From, "", message.Interactive.ButtonReply.ID, true
	default:
		log.WithField("type", message.Type).Debug("Ignoring unsupported message type")
		return "", "", "", false
	}
}
