package invoicing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lorrybill/lorrybill/internal/platform/httpx"
	"github.com/lorrybill/lorrybill/internal/shared"
)

// Handler exposes the invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	summary   *SummaryService
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, summary *SummaryService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, summary: summary, validator: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.generate)
	r.Get("/", h.list)
	r.Get("/summary", h.dashboard)
	r.Get("/{id}", h.get)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if !h.decode(w, r, &req) {
		return
	}
	ids, err := ParseTransactionIDs(req.TransactionIDs)
	if err != nil {
		h.respondError(w, err)
		return
	}
	date, err := time.Parse(dateLayout, req.InvoiceDate)
	if err != nil {
		h.respondError(w, invalidInput("invoice_date must be YYYY-MM-DD"))
		return
	}
	detail, err := h.service.GenerateInvoice(r.Context(), owner, GenerateRequest{
		TransactionIDs: ids,
		InvoiceDate:    date,
		Notes:          req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDetailResponse(detail))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status"))}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	page, err := h.service.ListInvoices(r.Context(), owner, filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toListResponse(page))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.GetInvoice(r.Context(), owner, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDetailResponse(detail))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.CancelInvoice(r.Context(), owner, id, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cancelResponse{
		ID:          res.InvoiceID,
		Number:      res.Number,
		Status:      res.Status,
		Reason:      res.Reason,
		CancelledAt: res.CancelledAt,
		Released:    res.Released,
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	if h.summary == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "summary not configured")
		return
	}
	sum, err := h.summary.Get(r.Context(), owner)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return uuid.Nil, false
	}
	return owner, true
}

func (h *Handler) ownerAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	owner, ok := h.owner(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return owner, id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs[0].Field()+" failed "+fieldErrs[0].Tag())
			return false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

// respondError checks CommitFailed first: its cause may also match a
// validation sentinel, but the unit left no changes behind.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var (
		stale  *StaleReferenceError
		commit *CommitError
	)
	switch {
	case errors.As(err, &commit):
		h.logger.Warn("invoice commit failed", slog.Any("error", err))
		p := httpx.ProblemDetail{
			Title:     "Commit Failed",
			Status:    http.StatusConflict,
			Detail:    "the operation did not complete and left no changes; retry it",
			Retryable: commit.Retryable(),
		}
		if !p.Retryable {
			p.Detail = "the operation did not complete and left no changes: " + commit.Cause.Error()
			if errors.As(commit.Cause, &stale) {
				p.MissingIDs = idStrings(stale.IDs)
			}
		}
		httpx.WriteProblem(w, p)
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.As(err, &stale):
		httpx.WriteProblem(w, httpx.ProblemDetail{
			Title:      "Stale Or Foreign Reference",
			Status:     http.StatusConflict,
			Detail:     err.Error(),
			MissingIDs: idStrings(stale.IDs),
		})
	case errors.Is(err, ErrMixedGroup):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Mixed Group", err.Error())
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Amount", err.Error())
	case errors.Is(err, ErrCalculation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Calculation Error", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidStateTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid State Transition", err.Error())
	default:
		h.logger.Error("invoice request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
