package transactions

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lorrybill/lorrybill/internal/platform/httpx"
	"github.com/lorrybill/lorrybill/internal/shared"
)

// Handler exposes transaction entry endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	owner, in, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := h.service.Create(r.Context(), owner, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	page, err := h.service.List(r.Context(), owner, filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := listResponse{
		Items:      make([]transactionResponse, 0, len(page.Items)),
		Page:       page.Pagination.Page,
		PerPage:    page.Pagination.PerPage,
		Total:      page.Pagination.Total,
		TotalPages: page.Pagination.TotalPages,
	}
	for _, t := range page.Items {
		resp.Items = append(resp.Items, toResponse(t))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	owner, in, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := h.service.Update(r.Context(), owner, id, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ownerAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return owner, id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (uuid.UUID, Input, bool) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return uuid.Nil, Input{}, false
	}
	var req transactionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return uuid.Nil, Input{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs[0].Field()+" failed "+fieldErrs[0].Tag())
			return uuid.Nil, Input{}, false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return uuid.Nil, Input{}, false
	}
	return owner, req.toInput(), true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDuplicateChallan):
		httpx.Problem(w, http.StatusConflict, "Duplicate Challan", err.Error())
	case errors.Is(err, ErrInvoiced), errors.Is(err, ErrReferenced):
		httpx.Problem(w, http.StatusConflict, "Locked", err.Error())
	default:
		h.logger.Error("transaction request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseFilter(q url.Values) (ListFilter, error) {
	var f ListFilter
	for key, dst := range map[string]**uuid.UUID{"buyer_id": &f.BuyerID, "site_id": &f.SiteID, "item_id": &f.ItemID} {
		if raw := q.Get(key); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return ListFilter{}, errors.New(key + " must be a UUID")
			}
			*dst = &id
		}
	}
	if raw := q.Get("invoiced"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return ListFilter{}, errors.New("invoiced must be a boolean")
		}
		f.Invoiced = &v
	}
	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if raw := q.Get(key); raw != "" {
			d, err := time.Parse(dateLayout, raw)
			if err != nil {
				return ListFilter{}, errors.New(key + " must be YYYY-MM-DD")
			}
			*dst = &d
		}
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return f, nil
}
