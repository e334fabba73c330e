package api

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tomashoffer/afripulse/internal"
	"github.com/tomashoffer/afripulse/internal/db"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type healthResponse struct {
	Ok    bool   `json:"ok"`
	Ts    string `json:"ts,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error("Health check failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, healthResponse{Ok: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Ok: true, Ts: time.Now().UTC().Format(isoMillis)})
}

func (s *Server) MediaShares(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(r.URL.Query().Get("country"))
	if country == "" {
		country = "NG"
	}
	category := strings.ToUpper(r.URL.Query().Get("category"))
	if category == "" {
		category = db.CategoryAll
	}

	shares, err := s.media.Shares(r.Context(), country, category)
	if err != nil {
		s.serverError(w, "Failed to compute media shares", err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

func (s *Server) Countries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.catalog.Countries(r.Context())
	if err != nil {
		s.serverError(w, "Failed to list countries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"countries": countries})
}

func (s *Server) Modules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"modules": s.catalog.Modules()})
}

// VerifyWebhook answers the provider's subscription handshake.
func (s *Server) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token != "" && s.opts.WebhookVerifyToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.WebhookVerifyToken)) == 1 {
		writeText(w, http.StatusOK, challenge)
		return
	}
	s.log.Warn("Webhook verification rejected", "mode", mode)
	writeText(w, http.StatusForbidden, "Forbidden")
}

// ReceiveWebhook always acknowledges with 200 so the provider never
// redelivers; failures are only logged.
func (s *Server) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.log.Error("Failed to read webhook body", "error", err)
		writeText(w, http.StatusOK, "OK")
		return
	}

	msg, err := internal.ParseInbound(r.Header.Get("Content-Type"), body)
	if err != nil {
		s.log.Warn("Unparseable webhook payload", "error", err)
		writeText(w, http.StatusOK, "OK")
		return
	}

	if err := s.inbound.HandleInbound(r.Context(), msg); err != nil {
		s.log.Error("Failed to handle inbound message", "error", err)
	}
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not Found", Path: r.URL.RequestURI()})
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, "error", err)
	message := "Something went wrong"
	if s.opts.ExposeErrors {
		message = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   http.StatusText(http.StatusInternalServerError),
		Message: message,
	})
}
