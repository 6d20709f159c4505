package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vovarama1992/synaplink-bot/internal/logger"
)

// SecretHeader carries the webhook secret set with SetWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type Handler struct {
	sink   Sink
	secret string
	log    *logger.Logger
}

func NewHandler(sink Sink, secret string, log *logger.Logger) *Handler {
	return &Handler{sink: sink, secret: secret, log: log.WithComponent("webhook")}
}

// HandleWebhook: вход от Telegram. The update is queued and acknowledged
// at once; Telegram redelivers anything that is not answered with 2xx.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	var upd tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := h.sink.Enqueue(r.Context(), upd); err != nil {
		h.log.WithContext(r.Context()).Error("enqueue update", "update_id", upd.UpdateID, "error", err)
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/telegram/webhook", h.HandleWebhook)
}
