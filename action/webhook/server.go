// Package webhook exposes the action dispatcher to the dialogue engine
// over HTTP.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tgtg-tools/bagbot/action/contract"
)

type Config struct {
	ListenAddress   string        `split_words:"true" default:":5055"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"5m"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// Dispatcher is the slice of the action layer the server needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, turn *contractx.Turn) (*contractx.Outcome, error)
}

// Server handles the dialogue engine's action webhook: one POST per
// conversational turn.
type Server struct {
	conf       Config
	dispatcher Dispatcher
	http       *http.Server
}

func NewServer(conf Config, dispatcher Dispatcher) *Server {
	srv := &Server{
		conf:       conf,
		dispatcher: dispatcher,
	}

	router := chi.NewRouter()
	router.Get("/healthz", srv.handleHealth)
	router.Post("/webhook", srv.handleWebhook)

	srv.http = &http.Server{
		Addr:         conf.ListenAddress,
		Handler:      router,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
	}
	return srv
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.conf.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

/* ------------------------------ wire types ------------------------------ */

// actionRequest mirrors the dialogue engine's action-server call: the
// action to run plus the tracker state for this conversation.
type actionRequest struct {
	NextAction string `json:"next_action"`
	SenderID   string `json:"sender_id"`
	Tracker    struct {
		SenderID      string         `json:"sender_id"`
		Slots         map[string]any `json:"slots"`
		LatestMessage struct {
			Entities []contractx.Entity `json:"entities"`
		} `json:"latest_message"`
	} `json:"tracker"`
}

type actionResponse struct {
	Events    []contractx.Event    `json:"events"`
	Responses []contractx.Response `json:"responses"`
}

type errorResponse struct {
	ActionName string `json:"action_name,omitempty"`
	Error      string `json:"error"`
}

/* ------------------------------- handlers ------------------------------- */

func (s *Server) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebhook(rw http.ResponseWriter, req *http.Request) {
	turnID := uuid.NewString()
	logger := log.With().Str("turn_id", turnID).Logger()

	var parsed actionRequest
	if err := json.NewDecoder(req.Body).Decode(&parsed); err != nil {
		logger.Warn().Err(err).Msg("malformed action request")
		writeJSON(rw, http.StatusBadRequest, errorResponse{Error: "malformed action request"})
		return
	}

	senderID := parsed.SenderID
	if senderID == "" {
		senderID = parsed.Tracker.SenderID
	}
	turn := &contractx.Turn{
		SenderID: senderID,
		Slots:    parsed.Tracker.Slots,
		Entities: parsed.Tracker.LatestMessage.Entities,
	}

	logger.Debug().Str("action", parsed.NextAction).Str("sender_id", senderID).Msg("dispatching action")

	out, err := s.dispatcher.Dispatch(req.Context(), parsed.NextAction, turn)
	if err != nil {
		if errors.Is(err, contractx.ErrUnknownAction) {
			writeJSON(rw, http.StatusNotFound, errorResponse{
				ActionName: parsed.NextAction,
				Error:      err.Error(),
			})
			return
		}
		logger.Error().Err(err).Str("action", parsed.NextAction).Msg("action failed")
		writeJSON(rw, http.StatusInternalServerError, errorResponse{
			ActionName: parsed.NextAction,
			Error:      "action execution failed",
		})
		return
	}

	resp := actionResponse{
		Events:    out.Events,
		Responses: out.Responses,
	}
	if resp.Events == nil {
		resp.Events = []contractx.Event{}
	}
	if resp.Responses == nil {
		resp.Responses = []contractx.Response{}
	}
	writeJSON(rw, http.StatusOK, resp)
}

func writeJSON(rw http.ResponseWriter, code int, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	rw.Write(raw)
}
