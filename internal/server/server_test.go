package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paintbid/paintbid/internal/ai"
	"github.com/paintbid/paintbid/internal/bids"
	"github.com/paintbid/paintbid/internal/estimate"
)

func newTestServer(t *testing.T) (*Server, *bids.Store) {
	t.Helper()
	store, err := bids.Open(filepath.Join(t.TempDir(), "bids.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("127.0.0.1:0", store, ai.NewClient(ai.Config{}), logger), store
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "ok", payload["status"])
	require.Equal(t, false, payload["chat_configured"])
}

func TestCreateAndFetchBid(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	draft := bids.Draft{
		UserID:      "user-1",
		ProjectName: "Kitchen repaint",
		Dimensions:  &estimate.Dimensions{Length: 12, Width: 10, Height: 8},
		Items: []estimate.LineItem{
			estimate.NewLineItem("Wall Painting (Standard)", 352, 2.50),
		},
	}

	created := doJSON(t, handler, http.MethodPost, "/api/bids", draft)
	require.Equal(t, http.StatusCreated, created.Code)

	var createdPayload struct {
		Bid bids.Bid `json:"bid"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createdPayload))
	require.NotEmpty(t, createdPayload.Bid.ID)
	require.InDelta(t, 880.0, createdPayload.Bid.EstimatedCost, 1e-9)

	fetched := doJSON(t, handler, http.MethodGet, "/api/bids/"+createdPayload.Bid.ID, nil)
	require.Equal(t, http.StatusOK, fetched.Code)

	var fetchedPayload struct {
		Bid bids.Bid `json:"bid"`
	}
	require.NoError(t, json.Unmarshal(fetched.Body.Bytes(), &fetchedPayload))
	require.Equal(t, "Kitchen repaint", fetchedPayload.Bid.ProjectName)
	require.Len(t, fetchedPayload.Bid.Items, 1)

	listed := doJSON(t, handler, http.MethodGet, "/api/bids?user_id=user-1", nil)
	require.Equal(t, http.StatusOK, listed.Code)

	var listPayload struct {
		Bids []bids.Bid `json:"bids"`
	}
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &listPayload))
	require.Len(t, listPayload.Bids, 1)
}

func TestBidErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	missingUser := doJSON(t, handler, http.MethodGet, "/api/bids", nil)
	require.Equal(t, http.StatusBadRequest, missingUser.Code)

	badBody := httptest.NewRequest(http.MethodPost, "/api/bids", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, badBody)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	invalidDraft := doJSON(t, handler, http.MethodPost, "/api/bids", bids.Draft{ProjectName: "no user"})
	require.Equal(t, http.StatusBadRequest, invalidDraft.Code)
	require.Contains(t, invalidDraft.Body.String(), "user_id")

	badItem := doJSON(t, handler, http.MethodPost, "/api/bids", bids.Draft{
		UserID:      "user-1",
		ProjectName: "Bad item",
		Items:       []estimate.LineItem{{Description: "Broken", Quantity: 0, UnitPrice: 10}},
	})
	require.Equal(t, http.StatusBadRequest, badItem.Code)
	require.Contains(t, badItem.Body.String(), "quantity")

	notFound := doJSON(t, handler, http.MethodGet, "/api/bids/nope", nil)
	require.Equal(t, http.StatusNotFound, notFound.Code)

	badMethod := doJSON(t, handler, http.MethodDelete, "/api/bids", nil)
	require.Equal(t, http.StatusMethodNotAllowed, badMethod.Code)
}

func TestAIEndpointsWithoutCredentials(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	chat := doJSON(t, handler, http.MethodPost, "/api/ai/chat", map[string]string{"question": "what rate?"})
	require.Equal(t, http.StatusServiceUnavailable, chat.Code)

	estimateReq := doJSON(t, handler, http.MethodPost, "/api/ai/estimate", map[string]string{"transcript": "a room"})
	require.Equal(t, http.StatusServiceUnavailable, estimateReq.Code)

	tts := doJSON(t, handler, http.MethodPost, "/api/ai/tts", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusServiceUnavailable, tts.Code)

	transcribe := doJSON(t, handler, http.MethodPost, "/api/ai/transcribe", map[string]string{})
	require.Equal(t, http.StatusServiceUnavailable, transcribe.Code)
}

func TestAIEndpointsValidateInput(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	emptyQuestion := doJSON(t, handler, http.MethodPost, "/api/ai/chat", map[string]string{"question": "  "})
	require.Equal(t, http.StatusBadRequest, emptyQuestion.Code)

	emptyEstimate := doJSON(t, handler, http.MethodPost, "/api/ai/estimate", map[string]string{})
	require.Equal(t, http.StatusBadRequest, emptyEstimate.Code)

	emptyText := doJSON(t, handler, http.MethodPost, "/api/ai/tts", map[string]string{"text": ""})
	require.Equal(t, http.StatusBadRequest, emptyText.Code)

	getChat := doJSON(t, handler, http.MethodGet, "/api/ai/chat", nil)
	require.Equal(t, http.StatusMethodNotAllowed, getChat.Code)
}

func TestListScopedToUser(t *testing.T) {
	srv, store := newTestServer(t)
	handler := srv.Handler()

	for i, user := range []string{"user-1", "user-1", "user-2"} {
		_, err := store.Save(context.Background(), bids.Draft{
			UserID:      user,
			ProjectName: fmt.Sprintf("Project %d", i),
		})
		require.NoError(t, err)
	}

	listed := doJSON(t, handler, http.MethodGet, "/api/bids?user_id=user-1", nil)
	require.Equal(t, http.StatusOK, listed.Code)

	var payload struct {
		Bids []bids.Bid `json:"bids"`
	}
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &payload))
	require.Len(t, payload.Bids, 2)
}
