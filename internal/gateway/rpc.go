package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/version"
)

// RequestHandler serves one RPC method.
type RequestHandler func(rc *RequestContext)

// RequestContext carries a request frame and its connection.
type RequestContext struct {
	Ctx    context.Context
	Client *Client
	Frame  Frame
	Server *Server
}

// Respond answers the request successfully.
func (rc *RequestContext) Respond(payload any) {
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError answers the request with an error.
func (rc *RequestContext) RespondError(code, message string) {
	rc.fail(ErrorShape{Code: code, Message: message})
}

// RespondErr answers with the RPC form of err.
func (rc *RequestContext) RespondErr(err error) {
	rc.fail(errorShape(err))
}

func (rc *RequestContext) fail(e ErrorShape) {
	if err := rc.Client.RespondError(rc.Frame.ID, e); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send error")
	}
}

// Params decodes the request params into target. Missing params leave
// target untouched.
func (rc *RequestContext) Params(target any) error {
	if len(rc.Frame.Params) == 0 {
		return nil
	}
	return json.Unmarshal(rc.Frame.Params, target)
}

// errorShape maps a domain error code onto an RPC error code.
func errorShape(err error) ErrorShape {
	e := ErrorShape{Code: CodeInternal, Message: err.Error()}
	switch domain.CodeOf(err) {
	case domain.ErrNotFound:
		e.Code = CodeNotFound
	case domain.ErrMissingContext, domain.ErrInvalidDocument:
		e.Code = CodeInvalidParams
	case domain.ErrMisconfigured:
		e.Code = CodeUnavailable
	case domain.ErrAgentInvocation, domain.ErrExternalService:
		e.Code = CodeAgent
	}
	var de *domain.Error
	if errors.As(err, &de) && len(de.Details) > 0 {
		e.Details = de.Details
	}
	return e
}

func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("chat.send", s.rpcChatSend)
	s.Handle("itinerary.get", s.rpcItineraryGet)
	s.Handle("itinerary.enrich", s.rpcItineraryEnrich)
}

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:        "ok",
		Version:       version.Version,
		Clients:       s.clients.Count(),
		Conversations: s.planner.Conversations(),
	})
}

func (s *Server) rpcChatSend(rc *RequestContext) {
	var p ChatRequest
	if err := rc.Params(&p); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return
	}
	res, err := s.chat(rc.Ctx, p)
	if err != nil {
		rc.RespondErr(err)
		return
	}
	rc.Respond(res)
}

type itineraryParams struct {
	ConversationID string `json:"conversation_id"`
}

// ItineraryPayload answers itinerary.get and itinerary.enrich.
type ItineraryPayload struct {
	ConversationID string          `json:"conversation_id"`
	Itinerary      json.RawMessage `json:"itinerary"`
}

func (rc *RequestContext) conversationParam() (string, bool) {
	var p itineraryParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return "", false
	}
	id := strings.TrimSpace(p.ConversationID)
	if id == "" {
		rc.RespondError(CodeInvalidParams, "conversation_id is required")
		return "", false
	}
	return id, true
}

func (s *Server) rpcItineraryGet(rc *RequestContext) {
	id, ok := rc.conversationParam()
	if !ok {
		return
	}
	doc, err := s.planner.Itinerary(rc.Ctx, id)
	if err != nil {
		rc.RespondErr(err)
		return
	}
	rc.Respond(ItineraryPayload{ConversationID: id, Itinerary: documentJSON(doc)})
}

func (s *Server) rpcItineraryEnrich(rc *RequestContext) {
	id, ok := rc.conversationParam()
	if !ok {
		return
	}
	doc, err := s.enrich(rc.Ctx, id)
	if err != nil {
		rc.RespondErr(err)
		return
	}
	rc.Respond(ItineraryPayload{ConversationID: id, Itinerary: documentJSON(doc)})
}

// documentJSON embeds a stored document, quoting it when it is not JSON.
func documentJSON(doc string) json.RawMessage {
	if json.Valid([]byte(doc)) {
		return json.RawMessage(doc)
	}
	quoted, _ := json.Marshal(doc)
	return quoted
}
