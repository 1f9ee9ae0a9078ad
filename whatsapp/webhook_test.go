package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mort/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedAction struct {
	chatID   string
	text     string
	buttonID string
}

type captureHandler struct {
	actions chan capturedAction
}

func (h *captureHandler) HandleUserAction(ctx context.Context, chatID, text, buttonID string) {
	h.actions <- capturedAction{chatID: chatID, text: text, buttonID: buttonID}
}

func newWebhookRouter(handler MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	cfg := config.NewTestConfig()
	cfg.WhatsAppVerifyToken = "verify-me"
	NewWebhook(handler, cfg).Register(router)
	return router
}

func TestWebhookVerifyHandshake(t *testing.T) {
	router := newWebhookRouter(&captureHandler{actions: make(chan capturedAction, 1)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())
}

func TestWebhookVerifyRejectsBadToken(t *testing.T) {
	router := newWebhookRouter(&captureHandler{actions: make(chan capturedAction, 1)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookDeliversTextMessage(t *testing.T) {
	handler := &captureHandler{actions: make(chan capturedAction, 1)}
	router := newWebhookRouter(handler)

	payload := `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{
						"from": "15551234567",
						"type": "text",
						"text": {"body": "balance"}
					}]
				}
			}]
		}]
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case action := <-handler.actions:
		assert.Equal(t, "15551234567", action.chatID)
		assert.Equal(t, "balance", action.text)
		assert.Empty(t, action.buttonID)
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestWebhookDeliversButtonReply(t *testing.T) {
	handler := &captureHandler{actions: make(chan capturedAction, 1)}
	router := newWebhookRouter(handler)

	payload := `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{
						"from": "15551234567",
						"type": "interactive",
						"interactive": {"button_reply": {"id": "game_flip", "title": "Coin Flip"}}
					}]
				}
			}]
		}]
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case action := <-handler.actions:
		assert.Equal(t, "15551234567", action.chatID)
		assert.Equal(t, "game_flip", action.buttonID)
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestWebhookIgnoresUnsupportedMessageTypes(t *testing.T) {
	handler := &captureHandler{actions: make(chan capturedAction, 1)}
	router := newWebhookRouter(handler)

	payload := `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{"from": "15551234567", "type": "image"}]
				}
			}]
		}]
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-handler.actions:
		t.Fatal("unsupported message type must not reach the handler")
	case <-time.After(50 * time.Millisecond):
	}
}
