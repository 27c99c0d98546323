package masterdata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lorrybill/lorrybill/internal/platform/httpx"
	"github.com/lorrybill/lorrybill/internal/shared"
)

// Handler exposes master data JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers master data routes. Callers mount it under an
// authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.createItem)
		r.Get("/", h.listItems)
		r.Get("/{id}", h.getItem)
	})
	r.Route("/businesses", func(r chi.Router) {
		r.Post("/", h.createBusiness)
		r.Get("/", h.listBusinesses)
		r.Get("/{id}", h.getBusiness)
	})
	r.Route("/sites", func(r chi.Router) {
		r.Post("/", h.createSite)
		r.Get("/", h.listSites)
		r.Get("/{id}", h.getSite)
	})
	r.Route("/lorries", func(r chi.Router) {
		r.Post("/", h.createLorry)
		r.Get("/", h.listLorries)
		r.Get("/{id}", h.getLorry)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Post("/", h.createSupplier)
		r.Get("/", h.listSuppliers)
		r.Get("/{id}", h.getSupplier)
	})
	r.Route("/companies", func(r chi.Router) {
		r.Post("/", h.createCompany)
		r.Get("/", h.listCompanies)
		r.Get("/{id}", h.getCompany)
	})
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	owner, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	item, err := h.service.CreateItem(r.Context(), owner, req.toItem())
	h.respond(w, http.StatusCreated, item, err)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.service.ListItems)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, h.service.GetItem)
}

func (h *Handler) createBusiness(w http.ResponseWriter, r *http.Request) {
	var req businessRequest
	owner, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	b, err := h.service.CreateBusiness(r.Context(), owner, req.toBusiness())
	h.respond(w, http.StatusCreated, b, err)
}

func (h *Handler) listBusinesses(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.service.ListBusinesses)
}

func (h *Handler) getBusiness(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, h.service.GetBusiness)
}

func (h *Handler) createSite(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	owner, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	s, err := h.service.CreateSite(r.Context(), owner, req.toSite())
	h.respond(w, http.StatusCreated, s, err)
}

func (h *Handler) listSites(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.service.ListSites)
}

func (h *Handler) getSite(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, h.service.GetSite)
}

func (h *Handler) createLorry(w http.ResponseWriter, r *http.Request) {
	var req lorryRequest
	owner, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	l, err := h.service.CreateLorry(r.Context(), owner, req.toLorry())
	h.respond(w, http.StatusCreated, l, err)
}

func (h *Handler) listLorries(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.service.ListLorries)
}

func (h *Handler) getLorry(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, h.service.GetLorry)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	owner, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	sup, err := h.service.CreateSupplier(r.Context(), owner, req.toSupplier())
	h.respond(w, http.StatusCreated, sup, err)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.service.ListSuppliers)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, h.service.GetSupplier)
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	owner, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	c, err := req.toCompany()
	if err == nil {
		c, err = h.service.CreateCompany(r.Context(), owner, c)
	}
	h.respond(w, http.StatusCreated, c, err)
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.service.ListCompanies)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, h.service.GetCompany)
}

func list[T any](h *Handler, w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) ([]T, error)) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	out, err := fn(r.Context(), owner)
	h.respond(w, http.StatusOK, out, err)
}

func get[T any](h *Handler, w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID) (T, error)) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return
	}
	out, err := fn(r.Context(), owner, id)
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) (uuid.UUID, bool) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return uuid.Nil, false
	}
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return uuid.Nil, false
	}
	if err := h.validator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs[0].Field()+" failed "+fieldErrs[0].Tag())
			return uuid.Nil, false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return uuid.Nil, false
	}
	return owner, true
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any, err error) {
	switch {
	case err == nil:
		httpx.JSON(w, status, body)
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("masterdata request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
