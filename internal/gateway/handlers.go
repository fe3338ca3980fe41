package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/soyeahso/wayfarer/internal/domain"
)

// HealthResponse is the body of the health endpoints. The public HTTP
// routes only fill Status.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	Clients       int    `json:"clients,omitempty"`
	Conversations int    `json:"conversations,omitempty"`
}

// ChatRequest is the body of POST /chat and the chat.send params.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse answers a chat turn.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
	CurrentAgent   string `json:"current_agent"`
}

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.chat(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// chat runs one turn, bounded by the turn timeout. Shared by HTTP and RPC.
func (s *Server) chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, domain.NewMissingContext("message is required", "message")
	}
	res, err := s.planner.HandleTurn(ctx, req.ConversationID, req.Message)
	if err != nil {
		return nil, err
	}
	return &ChatResponse{
		ConversationID: res.ConversationID,
		Reply:          res.Reply,
		CurrentAgent:   res.ActiveAgent,
	}, nil
}

func (s *Server) handleGetItinerary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.planner.Itinerary(r.Context(), id)
	if err != nil {
		// any read failure is reported as absence
		writeDetail(w, http.StatusNotFound, err.Error())
		return
	}
	writeDocument(w, doc)
}

func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.enrich(r.Context(), id)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeDocument(w, doc)
}

// enrich runs accommodation enrichment and tells connected clients the
// itinerary changed.
func (s *Server) enrich(ctx context.Context, id string) (string, error) {
	doc, report, err := s.planner.Enrich(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("conversation", id).Msg("enrichment failed")
		return "", err
	}
	s.clients.Broadcast(EventItineraryUpdated, map[string]any{
		"conversation_id": id,
		"report":          report,
	}, s.eventSeq.Add(1))
	return doc, nil
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"detail": "not found",
		"path":   r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error body of the form {"detail": msg}.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeError maps a domain error to its status. Agent failures become 502
// with the plain message.
func writeError(w http.ResponseWriter, err error) {
	writeDetail(w, domain.StatusOf(err), err.Error())
}

// writeDocument sends a stored itinerary as JSON, wrapping text that is
// not JSON as {"raw": doc}.
func writeDocument(w http.ResponseWriter, doc string) {
	if !json.Valid([]byte(doc)) {
		writeJSON(w, http.StatusOK, map[string]string{"raw": doc})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
