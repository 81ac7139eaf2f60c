package purchase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/memebooth/booth-api/internal/domain/credit"
	"github.com/memebooth/booth-api/internal/pkg/stripe"
)

// Failed-payment throttle: a user with this many recorded failures inside the
// trailing window cannot start another checkout.
const (
	failedPaymentAction = "failed_payment"
	failedPaymentWindow = 60 * time.Minute
	failedPaymentMax    = 5
)

// Gateway is the payment-provider surface the service depends on.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, p stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// FailureLimiter counts failed payments per user over a sliding window.
type FailureLimiter interface {
	Allow(ctx context.Context, identifier, action string, window time.Duration, max int64) (bool, error)
	Record(ctx context.Context, identifier, action string, window time.Duration) error
}

// Ledger is the credit-grant surface, transacted with the purchase claim.
type Ledger interface {
	GrantTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, txType credit.TxType, paymentRef, description string) (int, error)
}

// Store is the purchase persistence surface.
type Store interface {
	Create(ctx context.Context, p *Purchase) error
	GetByExternalID(ctx context.Context, externalID string) (*Purchase, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Purchase, error)
	MarkFailed(ctx context.Context, externalID, reason string) (bool, error)
	CompleteInTx(ctx context.Context, externalID string, fn func(tx *sqlx.Tx) error) (bool, error)
}

type Service struct {
	store      Store
	ledger     Ledger
	gateway    Gateway
	limiter    FailureLimiter
	successURL string
	cancelURL  string
}

func NewService(store Store, ledger Ledger, gateway Gateway, limiter FailureLimiter, successURL, cancelURL string) *Service {
	return &Service{
		store:      store,
		ledger:     ledger,
		gateway:    gateway,
		limiter:    limiter,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CreateCheckout starts a redirect checkout for a catalog pack and returns
// the provider URL. The pending row is written after the provider call, so a
// provider failure leaves no local record, and the URL is only handed out
// once the record exists.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, packID string) (string, error) {
	pack, ok := PackByID(packID)
	if !ok {
		return "", ErrInvalidPack
	}

	if err := s.checkFailureLimit(ctx, userID); err != nil {
		return "", err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		AmountCents: pack.PriceCents,
		Currency:    pack.Currency,
		ProductName: pack.Name,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
		Metadata:    grantMetadata(userID, pack),
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	if err := s.recordPending(ctx, userID, pack, session.ID, FlowCheckout); err != nil {
		return "", err
	}
	return session.URL, nil
}

// CreateQuickBuy starts a direct payment intent for the quick-buy pack and
// returns the client secret. Same contract as CreateCheckout.
func (s *Service) CreateQuickBuy(ctx context.Context, userID uuid.UUID) (string, error) {
	pack, ok := PackByID(QuickBuyPackID)
	if !ok {
		return "", ErrInvalidPack
	}

	if err := s.checkFailureLimit(ctx, userID); err != nil {
		return "", err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, stripe.PaymentIntentParams{
		AmountCents: pack.PriceCents,
		Currency:    pack.Currency,
		Metadata:    grantMetadata(userID, pack),
	})
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	if err := s.recordPending(ctx, userID, pack, intent.ID, FlowQuickBuy); err != nil {
		return "", err
	}
	return intent.ClientSecret, nil
}

func (s *Service) checkFailureLimit(ctx context.Context, userID uuid.UUID) error {
	allowed, err := s.limiter.Allow(ctx, userID.String(), failedPaymentAction, failedPaymentWindow, failedPaymentMax)
	if err != nil {
		// Counter unavailable: let the purchase through rather than block
		// paying users on a redis outage.
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed-payment limiter unavailable, allowing")
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func (s *Service) recordPending(ctx context.Context, userID uuid.UUID, pack Pack, externalID string, flow Flow) error {
	p := &Purchase{
		ID:          uuid.New(),
		UserID:      userID,
		PackID:      pack.ID,
		Credits:     pack.Credits,
		AmountCents: pack.PriceCents,
		Currency:    pack.Currency,
		Provider:    "stripe",
		ExternalID:  externalID,
		Flow:        flow,
		Status:      StatusPending,
	}
	if err := s.store.Create(ctx, p); err != nil {
		// The provider object exists but we could not record it. The caller
		// never receives the handle, so the payment cannot complete; log the
		// orphaned session for cleanup.
		log.Error().Err(err).
			Str("external_id", externalID).
			Str("user_id", userID.String()).
			Msg("pending purchase insert failed after provider call")
		return fmt.Errorf("record pending purchase: %w", err)
	}
	return nil
}

func grantMetadata(userID uuid.UUID, pack Pack) map[string]string {
	return map[string]string{
		"user_id": userID.String(),
		"pack_id": pack.ID,
		"credits": fmt.Sprintf("%d", pack.Credits),
	}
}

// HandleEvent reconciles one verified webhook event. A nil return means the
// delivery is settled (handled or deliberately ignored) and the provider
// should not retry; an error means processing failed mid-way and the provider
// retry policy governs redelivery.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	logger := log.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()
	logger.Info().Msg("webhook event received")

	switch event.Kind() {
	case stripe.KindCheckoutCompleted:
		session, err := event.CheckoutSession()
		if err != nil {
			logger.Warn().Err(err).Msg("undecodable checkout session, ignoring")
			return nil
		}
		if session.PaymentStatus != "" && session.PaymentStatus != "paid" {
			logger.Info().Str("payment_status", session.PaymentStatus).Msg("session completed but not paid, ignoring")
			return nil
		}
		return s.creditPurchase(ctx, logger, session.ID, session.Metadata)

	case stripe.KindPaymentSucceeded:
		intent, err := event.PaymentIntent()
		if err != nil {
			logger.Warn().Err(err).Msg("undecodable payment intent, ignoring")
			return nil
		}
		return s.creditPurchase(ctx, logger, intent.ID, intent.Metadata)

	case stripe.KindCheckoutExpired:
		session, err := event.CheckoutSession()
		if err != nil {
			logger.Warn().Err(err).Msg("undecodable checkout session, ignoring")
			return nil
		}
		return s.failPurchase(ctx, logger, session.ID, "checkout session expired", session.Metadata)

	case stripe.KindPaymentCanceled:
		intent, err := event.PaymentIntent()
		if err != nil {
			logger.Warn().Err(err).Msg("undecodable payment intent, ignoring")
			return nil
		}
		return s.failPurchase(ctx, logger, intent.ID, "payment intent canceled", intent.Metadata)

	case stripe.KindPaymentFailed:
		// A failed attempt is not terminal for the intent; the user can retry
		// the same payment. Observability only.
		logger.Info().Msg("payment attempt failed")
		return nil

	default:
		logger.Info().Msg("unhandled event type, ignoring")
		return nil
	}
}

func (s *Service) creditPurchase(ctx context.Context, logger zerolog.Logger, externalID string, metadata map[string]string) error {
	userID, credits, packID, err := parseGrantMetadata(metadata)
	if err != nil {
		logger.Warn().Err(err).Str("external_id", externalID).Msg("payment event without usable metadata, cannot credit")
		return nil
	}

	// Fast path only; the conditional update below is the real gate.
	if p, err := s.store.GetByExternalID(ctx, externalID); err == nil && p.Status == StatusCompleted {
		logger.Info().Str("external_id", externalID).Msg("purchase already completed, duplicate delivery")
		return nil
	}

	var balance int
	claimed, err := s.store.CompleteInTx(ctx, externalID, func(tx *sqlx.Tx) error {
		b, err := s.ledger.GrantTx(ctx, tx, userID, credits, credit.TxTypePurchase, externalID, "pack "+packID)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		// The claim rolled back with the grant. The payment succeeded on the
		// provider side but we could not credit it: park the purchase as
		// failed with the reason so support can act on it, and let the
		// provider redeliver.
		reason := fmt.Sprintf("credit grant failed: %v", err)
		if _, mfErr := s.store.MarkFailed(ctx, externalID, reason); mfErr != nil {
			logger.Error().Err(mfErr).Str("external_id", externalID).Msg("could not mark purchase failed after grant error")
		}
		logger.Error().Err(err).
			Str("external_id", externalID).
			Str("user_id", userID.String()).
			Msg("credit grant failed for confirmed payment")
		return fmt.Errorf("grant credits for %s: %w", externalID, err)
	}
	if !claimed {
		logger.Info().Str("external_id", externalID).Msg("purchase not pending, nothing to credit")
		return nil
	}

	logger.Info().
		Str("external_id", externalID).
		Str("user_id", userID.String()).
		Int("credits", credits).
		Int("balance", balance).
		Msg("purchase completed, credits granted")
	return nil
}

func (s *Service) failPurchase(ctx context.Context, logger zerolog.Logger, externalID, reason string, metadata map[string]string) error {
	failed, err := s.store.MarkFailed(ctx, externalID, reason)
	if err != nil {
		return fmt.Errorf("mark purchase failed: %w", err)
	}
	if !failed {
		logger.Info().Str("external_id", externalID).Msg("purchase not pending, failure event ignored")
		return nil
	}

	// Count the failure against the user so repeated abandoned or canceled
	// payments throttle new checkouts.
	if userID, ok := userIDFromMetadata(metadata); ok {
		if err := s.limiter.Record(ctx, userID.String(), failedPaymentAction, failedPaymentWindow); err != nil {
			logger.Warn().Err(err).Str("user_id", userID.String()).Msg("could not record failed payment")
		}
	}

	logger.Info().Str("external_id", externalID).Str("reason", reason).Msg("purchase marked failed")
	return nil
}

// ListByUser returns the user's purchase history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Purchase, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByUser(ctx, userID, limit, offset)
}

func parseGrantMetadata(metadata map[string]string) (uuid.UUID, int, string, error) {
	userID, err := uuid.Parse(metadata["user_id"])
	if err != nil {
		return uuid.Nil, 0, "", fmt.Errorf("metadata user_id: %w", err)
	}
	credits, err := strconv.Atoi(metadata["credits"])
	if err != nil {
		return uuid.Nil, 0, "", fmt.Errorf("metadata credits: %w", err)
	}
	if credits <= 0 {
		return uuid.Nil, 0, "", fmt.Errorf("metadata credits: non-positive value %d", credits)
	}
	packID := metadata["pack_id"]
	if packID == "" {
		return uuid.Nil, 0, "", fmt.Errorf("metadata pack_id missing")
	}
	return userID, credits, packID, nil
}

func userIDFromMetadata(metadata map[string]string) (uuid.UUID, bool) {
	id, err := uuid.Parse(metadata["user_id"])
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
