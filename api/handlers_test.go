package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/boards"
	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/events"
	"github.com/dest92/agora-backend/health"
	"github.com/dest92/agora-backend/notifications"
	"github.com/dest92/agora-backend/realtime"
	"github.com/dest92/agora-backend/sessions"
	"github.com/dest92/agora-backend/storage"
)

// stubAuth maps a fixed bearer token to a fixed user.
type stubAuth struct{}

func (stubAuth) UserIDFromAuthHeader(header string) (string, error) {
	switch header {
	case "Bearer good":
		return "u1", nil
	case "Bearer other":
		return "u2", nil
	}
	return "", errors.New("invalid token")
}

type nopBus struct{}

func (nopBus) Publish(ctx context.Context, ev events.Event) error { return nil }
func (nopBus) Subscribe(category string, h events.Handler)        {}
func (nopBus) Ping(ctx context.Context) bool                      { return true }

func newTestServer(t *testing.T, agg *health.Aggregator) *echo.Echo {
	t.Helper()
	logger := log.New()
	logger.SetLevel(log.PanicLevel)

	store, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if agg == nil {
		agg = health.NewAggregator(time.Second)
	}
	bus := nopBus{}
	e := echo.New()
	Register(e, Deps{
		Auth:          stubAuth{},
		Hub:           realtime.NewHub(logger),
		Boards:        boards.NewManagement(store, bus, logger),
		Cards:         boards.NewCards(store, bus, logger),
		Comments:      boards.NewComments(store, bus, logger),
		Assignees:     boards.NewAssignees(store, bus, logger),
		Votes:         boards.NewVotes(store, bus, logger),
		Tags:          boards.NewTags(store, bus, logger),
		Chat:          boards.NewChat(store, bus, logger),
		Sessions:      sessions.New(store, bus, logger),
		Notifications: notifications.New(store, bus, logger),
		Health:        agg,
	})
	return e
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthzAlwaysOK(t *testing.T) {
	e := newTestServer(t, nil)
	rec := doJSON(e, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestServicesHealthStatusTracksOverall(t *testing.T) {
	healthy := health.NewAggregator(time.Second)
	healthy.Add("redis", func(ctx context.Context) error { return nil })
	e := newTestServer(t, healthy)

	rec := doJSON(e, http.MethodGet, "/api/services/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy status %d", rec.Code)
	}
	var m health.Matrix
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("body: %v", err)
	}
	if !m.Overall || len(m.Services) != 1 {
		t.Fatalf("unexpected matrix %+v", m)
	}

	broken := health.NewAggregator(time.Second)
	broken.Add("redis", func(ctx context.Context) error { return errors.New("down") })
	e = newTestServer(t, broken)

	rec = doJSON(e, http.MethodGet, "/api/services/health", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("body: %v", err)
	}
	if m.Overall {
		t.Fatal("matrix reports healthy on 503")
	}
	if m.Services[0].Reason != "down" {
		t.Fatalf("unexpected reason %q", m.Services[0].Reason)
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	e := newTestServer(t, nil)
	rec := doJSON(e, http.MethodGet, "/api/boards/b1/cards", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
	rec = doJSON(e, http.MethodPost, "/api/boards/b1/cards", "bad", `{"content":"x"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestCardLifecycleOverHTTP(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/boards/b1/cards", "good", `{"content":"write the report","laneId":"todo"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var card domain.Card
	if err := json.Unmarshal(rec.Body.Bytes(), &card); err != nil {
		t.Fatalf("create body: %v", err)
	}
	if card.AuthorID != "u1" || card.BoardID != "b1" {
		t.Fatalf("unexpected card %+v", card)
	}

	rec = doJSON(e, http.MethodPatch, "/api/boards/b1/cards/"+card.ID, "good", `{"laneId":"doing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/api/boards/b1/cards", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var cards []domain.Card
	if err := json.Unmarshal(rec.Body.Bytes(), &cards); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if len(cards) != 1 || cards[0].LaneID != "doing" {
		t.Fatalf("unexpected cards %+v", cards)
	}

	rec = doJSON(e, http.MethodPost, "/api/boards/b1/cards/"+card.ID+"/archive", "good", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("archive status %d", rec.Code)
	}
	rec = doJSON(e, http.MethodGet, "/api/boards/b1/cards", "good", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &cards); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("archived card still listed: %+v", cards)
	}
}

func TestCreateCardRejectsEmptyContent(t *testing.T) {
	e := newTestServer(t, nil)
	rec := doJSON(e, http.MethodPost, "/api/boards/b1/cards", "good", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestUpdateMissingCardIs404(t *testing.T) {
	e := newTestServer(t, nil)
	rec := doJSON(e, http.MethodPatch, "/api/boards/b1/cards/nope", "good", `{"content":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestVoteEndpointValidatesType(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/boards/b1/cards/c1/votes", "good", `{"voteType":"sideways"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/boards/b1/cards/c1/votes", "good", `{"voteType":"up"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var res boards.VoteResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("body: %v", err)
	}
	if res.Action != "added" || res.Summary.Upvotes != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestBoardAndLaneFlowOverHTTP(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/boards", "good", `{"name":"Roadmap","workspaceId":"w1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var board domain.Board
	if err := json.Unmarshal(rec.Body.Bytes(), &board); err != nil {
		t.Fatalf("create body: %v", err)
	}
	if board.OwnerID != "u1" || board.WorkspaceID != "w1" {
		t.Fatalf("unexpected board %+v", board)
	}

	rec = doJSON(e, http.MethodGet, "/api/boards/"+board.ID, "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	rec = doJSON(e, http.MethodGet, "/api/boards/nope", "good", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing board status %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/boards?workspaceId=w1", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var listed []domain.Board
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != board.ID {
		t.Fatalf("unexpected boards %+v", listed)
	}

	rec = doJSON(e, http.MethodPost, "/api/boards/"+board.ID+"/lanes", "good", `{"title":"Todo","position":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("lane status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(e, http.MethodPost, "/api/boards/nope/lanes", "good", `{"title":"Todo"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("lane on missing board status %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/boards/"+board.ID+"/lanes", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("lanes status %d", rec.Code)
	}
	var lanes []domain.Lane
	if err := json.Unmarshal(rec.Body.Bytes(), &lanes); err != nil {
		t.Fatalf("lanes body: %v", err)
	}
	if len(lanes) != 1 || lanes[0].Title != "Todo" {
		t.Fatalf("unexpected lanes %+v", lanes)
	}
}

func TestVoteReadEndpoints(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodGet, "/api/boards/b1/cards/c1/votes/me", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status %d", rec.Code)
	}
	var me struct {
		VoteType *string `json:"voteType"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("me body: %v", err)
	}
	if me.VoteType != nil {
		t.Fatalf("expected null voteType, got %q", *me.VoteType)
	}

	rec = doJSON(e, http.MethodPost, "/api/boards/b1/cards/c1/votes", "good", `{"voteType":"up"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("cast status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/api/boards/b1/cards/c1/votes/me", "good", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("me body: %v", err)
	}
	if me.VoteType == nil || *me.VoteType != "up" {
		t.Fatalf("unexpected voteType %v", me.VoteType)
	}

	rec = doJSON(e, http.MethodGet, "/api/boards/b1/cards/c1/votes/summary", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status %d", rec.Code)
	}
	var summary domain.VoteSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("summary body: %v", err)
	}
	if summary.Upvotes != 1 || summary.Downvotes != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestCommentFlowOverHTTP(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/boards/b1/cards/c1/comments", "good", `{"content":"nice work"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var comment domain.Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &comment); err != nil {
		t.Fatalf("create body: %v", err)
	}
	if comment.UserID != "u1" || comment.CardID != "c1" {
		t.Fatalf("unexpected comment %+v", comment)
	}

	rec = doJSON(e, http.MethodPost, "/api/boards/b1/cards/c1/comments", "good", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty content status %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/boards/b1/cards/c1/comments", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var comments []domain.Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &comments); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if len(comments) != 1 || comments[0].ID != comment.ID {
		t.Fatalf("unexpected comments %+v", comments)
	}

	rec = doJSON(e, http.MethodDelete, "/api/comments/"+comment.ID, "other", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status %d", rec.Code)
	}
	rec = doJSON(e, http.MethodDelete, "/api/comments/"+comment.ID, "good", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}
	rec = doJSON(e, http.MethodDelete, "/api/comments/"+comment.ID, "good", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", rec.Code)
	}
}

func TestWorkspaceSessionFlowOverHTTP(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/workspaces", "good", `{"name":"Team"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("workspace status %d: %s", rec.Code, rec.Body.String())
	}
	var ws domain.Workspace
	if err := json.Unmarshal(rec.Body.Bytes(), &ws); err != nil {
		t.Fatalf("workspace body: %v", err)
	}

	rec = doJSON(e, http.MethodPost, "/api/workspaces/"+ws.ID+"/sessions", "good", `{"title":"Planning"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("session status %d: %s", rec.Code, rec.Body.String())
	}
	var sess domain.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("session body: %v", err)
	}

	rec = doJSON(e, http.MethodPost, "/api/sessions/"+sess.ID+"/join", "good", `{"workspaceId":"`+ws.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("join status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/api/sessions/"+sess.ID+"/participants", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("participants status %d", rec.Code)
	}
	var participants struct {
		Users []string `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &participants); err != nil {
		t.Fatalf("participants body: %v", err)
	}
	if len(participants.Users) != 1 || participants.Users[0] != "u1" {
		t.Fatalf("unexpected participants %v", participants.Users)
	}
}

func TestChatDeleteForeignMessageIs404(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/boards/b1/chat", "good", `{"content":"hello"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status %d: %s", rec.Code, rec.Body.String())
	}
	var msg domain.ChatMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("send body: %v", err)
	}

	rec = doJSON(e, http.MethodDelete, "/api/chat/"+msg.ID, "good", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}
	rec = doJSON(e, http.MethodDelete, "/api/chat/"+msg.ID, "good", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", rec.Code)
	}
}
