package purchase

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/memebooth/booth-api/internal/middleware"
	"github.com/memebooth/booth-api/internal/pkg/response"
	"github.com/memebooth/booth-api/internal/pkg/stripe"
	"github.com/memebooth/booth-api/internal/pkg/validator"
)

// maxWebhookBody bounds what we read from the provider; real events are a few KB.
const maxWebhookBody = 64 * 1024

type Handler struct {
	svc           *Service
	webhookSecret string
}

func NewHandler(svc *Service, webhookSecret string) *Handler {
	return &Handler{svc: svc, webhookSecret: webhookSecret}
}

type checkoutRequest struct {
	PackID string `json:"packId" validate:"required,max=64"`
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req checkoutRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", fields)
		return
	}

	url, err := h.svc.CreateCheckout(r.Context(), userID, req.PackID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPack):
			response.BadRequest(w, "unknown pack id")
		case errors.Is(err, ErrRateLimited):
			response.TooManyRequests(w)
		default:
			log.Error().Err(err).Str("user_id", userID.String()).Msg("checkout creation failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{"url": url})
}

func (h *Handler) QuickBuy(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.AuthRequired(w)
		return
	}

	clientSecret, err := h.svc.CreateQuickBuy(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRateLimited):
			response.TooManyRequests(w)
		default:
			log.Error().Err(err).Str("user_id", userID.String()).Msg("quick-buy creation failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{"clientSecret": clientSecret})
}

func (h *Handler) Packs(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{"packs": Catalog()})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	purchases, err := h.svc.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"purchases": purchases})
}

// Webhook is the provider-facing endpoint. It speaks plain JSON rather than
// the site envelope, and it never exposes internal error detail: 400 tells
// the provider the delivery itself is bad, 500 asks it to retry.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeWebhookJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	event, err := stripe.ConstructEvent(payload, r.Header.Get(stripe.SignatureHeader), h.webhookSecret)
	if err != nil {
		log.Warn().Err(err).Msg("webhook signature verification failed")
		writeWebhookJSON(w, http.StatusBadRequest, map[string]string{"error": "signature verification failed"})
		return
	}

	if err := h.svc.HandleEvent(r.Context(), event); err != nil {
		writeWebhookJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
		return
	}

	writeWebhookJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func writeWebhookJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Routes mounts the purchase surface: checkout and history behind auth,
// quick-buy behind optional auth so it can answer with requireAuth, the pack
// catalog public.
func (h *Handler) Routes(authMiddleware, optionalAuthMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/packs", h.Packs)
	r.With(optionalAuthMiddleware).Post("/quick-buy", h.QuickBuy)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/checkout", h.CreateCheckout)
	})
	return r
}

// HistoryRoutes mounts the purchase history listing.
func (h *Handler) HistoryRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.History)
	return r
}
