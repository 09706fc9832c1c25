package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/yataro/chatterbox/api"
	"github.com/yataro/chatterbox/chat"
	"github.com/yataro/chatterbox/domain"
	"github.com/yataro/chatterbox/llm"
	"github.com/yataro/chatterbox/policy"
	"github.com/yataro/chatterbox/session"
	"github.com/yataro/chatterbox/store"
	"github.com/yataro/chatterbox/tests/helpers"
)

type fixture struct {
	store   *store.SQLiteStore
	handler *api.Handler
	echo    *echo.Echo
}

func newFixture(t *testing.T, gen llm.Generator) *fixture {
	t.Helper()

	st := helpers.NewTestSQLiteStore(t)
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	assert.NoError(t, err)

	h := api.NewHandler(st, chat.New(st, gen), session.NewBinder(st), policyEngine)
	e := echo.New()
	h.RegisterRoutes(e)

	return &fixture{store: st, handler: h, echo: e}
}

func (f *fixture) do(method, target string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

// echoGenerator prefixes the message so tests can assert on the reply.
type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, message string, history []domain.Exchange) (string, error) {
	return "echo: " + message, nil
}

// brokenGenerator always fails.
type brokenGenerator struct{}

func (brokenGenerator) Generate(ctx context.Context, message string, history []domain.Exchange) (string, error) {
	return "", errors.Join(llm.ErrGeneration, errors.New("model offline"))
}

func TestBindSession(t *testing.T) {
	f := newFixture(t, echoGenerator{})

	rec := f.do(http.MethodPost, "/v1/sessions", map[string]string{}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp api.BindSessionResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ContextID)
	assert.NotZero(t, resp.SessionID)

	// Rebinding the same context is a no-op returning the same session.
	rec = f.do(http.MethodPost, "/v1/sessions", map[string]string{"context_id": resp.ContextID}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var again api.BindSessionResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, resp.SessionID, again.SessionID)
}

func TestChatCreatesSessionWhenAbsent(t *testing.T) {
	f := newFixture(t, echoGenerator{})

	rec := f.do(http.MethodPost, "/v1/chat", api.ChatRequest{Message: "hi"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp api.ChatResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.SessionID)
	assert.Equal(t, "echo: hi", resp.Reply)

	history, err := f.store.GetSessionHistory(context.Background(), resp.SessionID)
	assert.NoError(t, err)
	assert.Equal(t, []domain.Exchange{{User: "hi", Response: "echo: hi"}}, history)
}

func TestChatContinuesSession(t *testing.T) {
	f := newFixture(t, echoGenerator{})

	rec := f.do(http.MethodPost, "/v1/chat", api.ChatRequest{Message: "first"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var first api.ChatResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = f.do(http.MethodPost, "/v1/chat", api.ChatRequest{SessionID: &first.SessionID, Message: "second"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var second api.ChatResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.SessionID, second.SessionID)

	history, err := f.store.GetSessionHistory(context.Background(), first.SessionID)
	assert.NoError(t, err)
	assert.Equal(t, []domain.Exchange{
		{User: "first", Response: "echo: first"},
		{User: "second", Response: "echo: second"},
	}, history)
}

func TestChatRecoversDanglingSession(t *testing.T) {
	f := newFixture(t, echoGenerator{})

	missing := int64(9999)
	rec := f.do(http.MethodPost, "/v1/chat", api.ChatRequest{SessionID: &missing, Message: "hi"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp api.ChatResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, missing, resp.SessionID)
}

func TestChatEmptyMessage(t *testing.T) {
	f := newFixture(t, echoGenerator{})

	rec := f.do(http.MethodPost, "/v1/chat", api.ChatRequest{Message: ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatGenerationFailure(t *testing.T) {
	f := newFixture(t, brokenGenerator{})

	sess, err := f.store.CreateSession(context.Background())
	assert.NoError(t, err)

	rec := f.do(http.MethodPost, "/v1/chat", api.ChatRequest{SessionID: &sess.ID, Message: "hi"}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Nothing was persisted for the failed turn.
	history, err := f.store.GetSessionHistory(context.Background(), sess.ID)
	assert.NoError(t, err)
	assert.Empty(t, history)
}

func TestGetSessionMessages(t *testing.T) {
	f := newFixture(t, echoGenerator{})
	ctx := context.Background()

	sess, err := f.store.CreateSession(ctx)
	assert.NoError(t, err)
	_, err = f.store.SaveMessage(ctx, sess.ID, "A", "B")
	assert.NoError(t, err)

	rec := f.do(http.MethodGet, "/v1/sessions/1/messages", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Messages, 1)
	assert.Equal(t, "A", resp.Messages[0].UserText)
	assert.Equal(t, "B", resp.Messages[0].ResponseText)
}

func TestListSessionsPolicy(t *testing.T) {
	f := newFixture(t, echoGenerator{})
	ctx := context.Background()

	_, err := f.store.CreateSession(ctx)
	assert.NoError(t, err)
	second, err := f.store.CreateSession(ctx)
	assert.NoError(t, err)

	t.Run("blocked without admin role", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/v1/sessions", nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed for admin, newest first", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/v1/sessions", nil, map[string]string{"X-Role": "admin"})
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Sessions []domain.Session `json:"sessions"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Sessions, 2)
		assert.Equal(t, second.ID, resp.Sessions[0].ID)
	})
}

func TestDeleteSessionPolicy(t *testing.T) {
	f := newFixture(t, echoGenerator{})
	ctx := context.Background()

	sess, err := f.store.CreateSession(ctx)
	assert.NoError(t, err)
	_, err = f.store.SaveMessage(ctx, sess.ID, "A", "B")
	assert.NoError(t, err)

	t.Run("blocked without admin role", func(t *testing.T) {
		rec := f.do(http.MethodDelete, "/v1/sessions/1", nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin delete cascades", func(t *testing.T) {
		rec := f.do(http.MethodDelete, "/v1/sessions/1", nil, map[string]string{"X-Role": "admin"})
		assert.Equal(t, http.StatusOK, rec.Code)

		messages, err := f.store.GetSessionMessages(ctx, sess.ID)
		assert.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("missing session is 404", func(t *testing.T) {
		rec := f.do(http.MethodDelete, "/v1/sessions/1", nil, map[string]string{"X-Role": "admin"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	f := newFixture(t, echoGenerator{})

	rec := f.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
