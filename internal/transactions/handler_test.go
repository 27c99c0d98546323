package transactions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lorrybill/lorrybill/internal/shared"
)

func serve(t *testing.T, h *Handler, owner uuid.UUID, method, path, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	ctx = shared.ContextWithOwner(ctx, owner)
	rr := httptest.NewRecorder()
	switch method {
	case http.MethodPost:
		h.create(rr, req.WithContext(ctx))
	case http.MethodGet:
		if params["id"] != "" {
			h.get(rr, req.WithContext(ctx))
		} else {
			h.list(rr, req.WithContext(ctx))
		}
	case http.MethodDelete:
		h.delete(rr, req.WithContext(ctx))
	}
	return rr
}

func TestHandlerCreateListDelete(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc)

	body := fmt.Sprintf(`{"challan_no":"CH-9","date":"2024-04-02","lorry_id":%q,"buyer_id":%q,"site_id":%q,"item_id":%q,"purchase_rate":"80","sale_rate":"100","quantity":"10"}`,
		f.input.LorryID, f.input.BuyerID, f.input.SiteID, f.input.ItemID)
	rr := serve(t, h, f.owner, http.MethodPost, "/", body, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created transactionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	require.Equal(t, int64(1), created.VoucherNo)
	require.Equal(t, "1000.00", created.LineAmount)
	require.Equal(t, "2024-04-02", created.Date)

	rr = serve(t, h, f.owner, http.MethodGet, "/?invoiced=false", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page listResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	require.Equal(t, 1, page.Total)

	rr = serve(t, h, f.owner, http.MethodDelete, "/"+created.ID.String(), "", map[string]string{"id": created.ID.String()})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(t, h, f.owner, http.MethodGet, "/"+created.ID.String(), "", map[string]string{"id": created.ID.String()})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc)

	rr := serve(t, h, f.owner, http.MethodPost, "/", `{"challan_no":"CH-1","date":"02/04/2024"}`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, h, f.owner, http.MethodGet, "/?buyer_id=nope", "", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, h, f.owner, http.MethodGet, "/x", "", map[string]string{"id": "x"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
