package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-practice/internal/auth"
	"github.com/gokatarajesh/quiz-practice/internal/server"
	"github.com/gokatarajesh/quiz-practice/internal/session/scoring"
	httperrors "github.com/gokatarajesh/quiz-practice/pkg/http/errors"
	"github.com/gokatarajesh/quiz-practice/pkg/http/ws"
)

// WSHandler streams session events over WebSockets. Each watched session
// holds one manager subscription that fans out through the hub.
type WSHandler struct {
	manager *Manager
	hub     *ws.Hub
	logger  zerolog.Logger

	mu   sync.Mutex
	subs map[uuid.UUID]func()
}

// NewWSHandler creates the session WebSocket handler.
func NewWSHandler(manager *Manager, hub *ws.Hub, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		manager: manager,
		hub:     hub,
		logger:  logger.With().Str("component", "session_ws").Logger(),
		subs:    make(map[uuid.UUID]func()),
	}
}

// ServeHTTP handles GET /ws/sessions/{id}
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.manager.Authorize(id, auth.UserID(r.Context())); err != nil {
		if errors.Is(err, ErrForbidden) {
			httperrors.RespondError(w, http.StatusForbidden, httperrors.ErrCodeForbidden, "Session belongs to another user")
			return
		}
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
		return
	}

	raw, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	logger := h.logger.With().Str("session_id", id.String()).Logger()
	conn := ws.NewConnection(raw, logger)
	go conn.WritePump()

	if err := h.attach(id, conn); err != nil {
		h.sendError(conn, err)
		conn.Close()
		return
	}
	defer h.detach(id, conn)

	if msg, err := h.stateMessage(id); err == nil {
		_ = conn.Send(msg)
	}

	conn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(id, conn, msg)
	})
}

func (h *WSHandler) attach(id uuid.UUID, conn *ws.Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[id]; !ok {
		cancel, err := h.manager.Subscribe(id, func(ev Event) { h.broadcast(id, ev) })
		if err != nil {
			return err
		}
		h.subs[id] = cancel
	}
	h.hub.Join(id, conn)
	return nil
}

func (h *WSHandler) detach(id uuid.UUID, conn *ws.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hub.Leave(id, conn)
	if h.hub.Count(id) > 0 {
		return
	}
	if cancel, ok := h.subs[id]; ok {
		cancel()
		delete(h.subs, id)
	}
}

func (h *WSHandler) handleMessage(id uuid.UUID, conn *ws.Connection, msg ws.Message) error {
	var err error
	switch msg.Type {
	case ws.TypeSelectOption:
		var payload ws.SelectOptionPayload
		if jsonErr := json.Unmarshal(msg.Payload, &payload); jsonErr != nil || payload.Index == nil {
			return h.replyError(conn, msg, httperrors.ErrCodeInvalidPayload, "select_option requires an index")
		}
		_, err = h.manager.Select(id, *payload.Index)
	case ws.TypeAdvance:
		_, err = h.manager.Advance(id)
	case ws.TypeAbort:
		err = h.manager.Abort(id)
	case ws.TypePing:
		reply, _ := ws.NewMessage(ws.TypePong, nil)
		reply.RequestID = msg.RequestID
		return conn.Send(reply)
	default:
		return h.replyError(conn, msg, httperrors.ErrCodeUnknownMessageType, "Unknown message type: "+msg.Type)
	}
	if err != nil {
		code, text := wsErrorCode(err)
		return h.replyError(conn, msg, code, text)
	}
	return nil
}

// broadcast runs on the runner's serialization point.
func (h *WSHandler) broadcast(id uuid.UUID, ev Event) {
	msg, err := h.eventMessage(id, ev)
	if err != nil {
		h.logger.Warn().Err(err).Str("event", string(ev.Type)).Msg("failed to encode session event")
		return
	}
	_ = h.hub.Broadcast(id, msg)

	if ev.Type == EventCompleted || ev.Type == EventAborted {
		h.hub.CloseSession(id)
	}
}

func (h *WSHandler) eventMessage(id uuid.UUID, ev Event) (ws.Message, error) {
	sid := id.String()
	st := ev.State
	switch ev.Type {
	case EventTick:
		return ws.NewMessage(ws.TypeQuestionTick, ws.QuestionTickPayload{
			SessionID:        sid,
			QuestionIndex:    st.CurrentIndex,
			RemainingSeconds: st.SecondsRemaining,
		})
	case EventSelected:
		selected := -1
		if st.SelectedIndex != nil {
			selected = *st.SelectedIndex
		}
		return ws.NewMessage(ws.TypeAnswerSelected, ws.AnswerSelectedPayload{
			SessionID:     sid,
			QuestionIndex: st.CurrentIndex,
			SelectedIndex: selected,
		})
	case EventAdvanced:
		questions, _, err := h.manager.Questions(id)
		if err != nil {
			return ws.Message{}, err
		}
		payload := ws.QuestionAdvancedPayload{
			SessionID:        sid,
			QuestionIndex:    st.CurrentIndex,
			RemainingSeconds: st.SecondsRemaining,
			TimedOut:         ev.TimedOut,
		}
		if q := currentQuestion(st, questions); q != nil {
			payload.Question = *q
		}
		return ws.NewMessage(ws.TypeQuestionAdvanced, payload)
	case EventCompleted:
		if ev.Result == nil {
			return ws.Message{}, errors.New("completed event without result")
		}
		res := *ev.Result
		return ws.NewMessage(ws.TypeSessionComplete, ws.SessionCompletePayload{
			SessionID:        sid,
			Score:            res.Score,
			TotalQuestions:   res.TotalQuestions,
			Percentage:       scoring.Percentage(res.Score, res.TotalQuestions),
			AnswerTrail:      res.AnswerTrail,
			TimeSpentSeconds: res.TimeSpentSeconds,
			TimedOut:         ev.TimedOut,
		})
	case EventAborted:
		return ws.NewMessage(ws.TypeSessionAborted, ws.SessionAbortedPayload{SessionID: sid})
	default:
		return ws.Message{}, errors.New("unknown event type " + string(ev.Type))
	}
}

func (h *WSHandler) stateMessage(id uuid.UUID) (ws.Message, error) {
	st, err := h.manager.State(id)
	if err != nil {
		return ws.Message{}, err
	}
	questions, _, err := h.manager.Questions(id)
	if err != nil {
		return ws.Message{}, err
	}
	return ws.NewMessage(ws.TypeSessionState, ws.SessionStatePayload{
		SessionID:          id.String(),
		Phase:              string(st.Phase),
		CurrentIndex:       st.CurrentIndex,
		SelectedIndex:      st.SelectedIndex,
		SecondsRemaining:   st.SecondsRemaining,
		QuestionCount:      st.QuestionCount,
		PerQuestionSeconds: st.PerQuestionSeconds,
		Answered:           len(st.Trail),
		Question:           currentQuestion(st, questions),
	})
}

func (h *WSHandler) replyError(conn *ws.Connection, req ws.Message, code, text string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: text})
	if err != nil {
		return err
	}
	msg.RequestID = req.RequestID
	return conn.Send(msg)
}

func (h *WSHandler) sendError(conn *ws.Connection, err error) {
	code, text := wsErrorCode(err)
	_ = h.replyError(conn, ws.Message{}, code, text)
}

func wsErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return httperrors.ErrCodeSessionNotFound, "Session not found"
	case errors.Is(err, ErrInvalidInput):
		return httperrors.ErrCodeValidationFailed, err.Error()
	case errors.Is(err, ErrInvalidState):
		return httperrors.ErrCodeInvalidState, err.Error()
	default:
		return httperrors.ErrCodeInternalError, "Request failed"
	}
}
