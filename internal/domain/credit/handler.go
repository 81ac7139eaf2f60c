package credit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/memebooth/booth-api/internal/middleware"
	"github.com/memebooth/booth-api/internal/pkg/response"
	"github.com/memebooth/booth-api/internal/pkg/validator"
)

// spendCost is the price of a single generation in credits.
const spendCost = 1

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type spendRequest struct {
	GenerationID string `json:"generation_id" validate:"required,max=128"`
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"balance": balance})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := h.svc.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"transactions": txs})
}

func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req spendRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	balance, err := h.svc.Spend(r.Context(), userID, spendCost, req.GenerationID, "meme generation")
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientCredits):
			response.Conflict(w, "insufficient credits")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "user not found")
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "invalid amount")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{"balance": balance})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Balance)
	r.Get("/history", h.History)
	r.Post("/spend", h.Spend)
	return r
}
