package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-practice/internal/auth"
	"github.com/gokatarajesh/quiz-practice/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-practice/pkg/http/ws"
)

func newWSFixture(t *testing.T, opts ManagerOptions) (*Manager, *httptest.Server) {
	t.Helper()
	m := newTestManager(t, opts, nil)
	mux := http.NewServeMux()
	mux.Handle("GET /ws/sessions/{id}", NewWSHandler(m, ws.NewHub(zerolog.Nop()), zerolog.Nop()))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return m, srv
}

func dialSession(t *testing.T, srv *httptest.Server, id uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + id.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) ws.Message {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg, err := ws.NewMessage(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func TestWSStateSelectAndComplete(t *testing.T) {
	m, srv := newWSFixture(t, ManagerOptions{PerQuestionSeconds: 30, TickInterval: time.Hour})
	id, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(2, 1)})
	require.NoError(t, err)

	conn := dialSession(t, srv, id)

	first := readMessage(t, conn)
	require.Equal(t, ws.TypeSessionState, first.Type)
	var state ws.SessionStatePayload
	require.NoError(t, json.Unmarshal(first.Payload, &state))
	assert.Equal(t, 2, state.QuestionCount)
	require.NotNil(t, state.Question)
	assert.NotContains(t, string(first.Payload), `"correct"`)

	send(t, conn, ws.TypeSelectOption, ws.SelectOptionPayload{Index: intPtr(2)})
	selected := readUntil(t, conn, ws.TypeAnswerSelected)
	var sel ws.AnswerSelectedPayload
	require.NoError(t, json.Unmarshal(selected.Payload, &sel))
	assert.Equal(t, 2, sel.SelectedIndex)

	send(t, conn, ws.TypeAdvance, nil)
	advanced := readUntil(t, conn, ws.TypeQuestionAdvanced)
	var adv ws.QuestionAdvancedPayload
	require.NoError(t, json.Unmarshal(advanced.Payload, &adv))
	assert.Equal(t, 1, adv.QuestionIndex)
	assert.False(t, adv.TimedOut)
	assert.Equal(t, 1, adv.Question.Index)

	send(t, conn, ws.TypeAdvance, nil)
	complete := readUntil(t, conn, ws.TypeSessionComplete)
	var done ws.SessionCompletePayload
	require.NoError(t, json.Unmarshal(complete.Payload, &done))
	assert.Equal(t, 1, done.Score)
	assert.Equal(t, 2, done.TotalQuestions)
	assert.Equal(t, 50, done.Percentage)
}

func TestWSTicksAndTimeout(t *testing.T) {
	m, srv := newWSFixture(t, ManagerOptions{PerQuestionSeconds: 2, TickInterval: 100 * time.Millisecond})
	id, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0)})
	require.NoError(t, err)

	conn := dialSession(t, srv, id)

	tick := readUntil(t, conn, ws.TypeQuestionTick)
	var payload ws.QuestionTickPayload
	require.NoError(t, json.Unmarshal(tick.Payload, &payload))
	assert.Less(t, payload.RemainingSeconds, 2)

	complete := readUntil(t, conn, ws.TypeSessionComplete)
	var done ws.SessionCompletePayload
	require.NoError(t, json.Unmarshal(complete.Payload, &done))
	assert.True(t, done.TimedOut)
	assert.Equal(t, 2, done.TimeSpentSeconds)
}

func TestWSErrorsAndAbort(t *testing.T) {
	m, srv := newWSFixture(t, ManagerOptions{TickInterval: time.Hour})
	id, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0, 0)})
	require.NoError(t, err)

	conn := dialSession(t, srv, id)
	readUntil(t, conn, ws.TypeSessionState)

	send(t, conn, "teleport", nil)
	unknown := readUntil(t, conn, ws.TypeError)
	var payload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(unknown.Payload, &payload))
	assert.Equal(t, "unknown_message_type", payload.Code)

	send(t, conn, ws.TypeSelectOption, ws.SelectOptionPayload{Index: intPtr(7)})
	invalid := readUntil(t, conn, ws.TypeError)
	require.NoError(t, json.Unmarshal(invalid.Payload, &payload))
	assert.Equal(t, "validation_failed", payload.Code)

	send(t, conn, ws.TypeAbort, nil)
	readUntil(t, conn, ws.TypeSessionAborted)

	require.Eventually(t, func() bool {
		_, err := m.State(id)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestWSUnknownSession(t *testing.T) {
	_, srv := newWSFixture(t, ManagerOptions{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + uuid.NewString()
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWSRejectsOtherUsersSession(t *testing.T) {
	m := newTestManager(t, ManagerOptions{TickInterval: time.Hour}, nil)
	id, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0), Meta: Meta{UserID: "alice"}})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle("GET /ws/sessions/{id}", NewWSHandler(m, ws.NewHub(zerolog.Nop()), zerolog.Nop()))
	withUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithClaims(r.Context(), &jwt.Claims{UserID: r.URL.Query().Get("user")})
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
	srv := httptest.NewServer(withUser)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + id.String()
	_, resp, err := websocket.DefaultDialer.Dial(url+"?user=mallory", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?user=alice", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	assert.Equal(t, ws.TypeSessionState, readMessage(t, conn).Type)
}

func intPtr(i int) *int { return &i }
