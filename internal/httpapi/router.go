// Package httpapi is the bot's HTTP surface: health, the Telegram webhook
// and a lead-check endpoint for testing assistant prompts.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Vovarama1992/synaplink-bot/internal/lead"
	"github.com/Vovarama1992/synaplink-bot/internal/logger"
)

// maxCheckBody bounds /leads/check requests.
const maxCheckBody = 64 << 10

// NewRouter builds the router. mount, when non-nil, registers extra routes
// such as the Telegram webhook.
func NewRouter(detector *lead.Detector, log *logger.Logger, mount func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Telegram-Bot-Api-Secret-Token"},
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	h := &leadHandler{detector: detector, log: log.WithComponent("httpapi")}
	r.Post("/leads/check", h.check)

	if mount != nil {
		mount(r)
	}
	return r
}

type leadHandler struct {
	detector *lead.Detector
	log      *logger.Logger
}

type checkResponse struct {
	IsLead  bool              `json:"is_lead"`
	IsFinal bool              `json:"is_final"`
	Valid   bool              `json:"valid"`
	Reason  string            `json:"reason"`
	Fields  map[string]string `json:"fields,omitempty"`
	Preview string            `json:"preview,omitempty"`
}

// check runs every lead predicate over a text.
func (h *leadHandler) check(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text   string `json:"text"`
		UserID int64  `json:"user_id"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckBody)).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		http.Error(w, "missing text", http.StatusBadRequest)
		return
	}

	valid, reason := h.detector.Validate(payload.Text)
	resp := checkResponse{
		IsLead:  h.detector.IsLeadCandidate(payload.Text),
		IsFinal: h.detector.IsFinalApplication(payload.Text),
		Valid:   valid,
		Reason:  reason,
	}
	if fields, ok := h.detector.Parse(payload.Text); ok {
		resp.Fields = fields
	}
	if resp.IsLead {
		resp.Preview = h.detector.FormatForDelivery(payload.Text, payload.UserID)
	}

	h.log.Debug("lead check",
		"request_id", middleware.GetReqID(r.Context()),
		"is_lead", resp.IsLead,
		"is_final", resp.IsFinal,
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
