package checkout

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/payment"
)

type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeNotPaid          Outcome = "not_paid"
)

type Result struct {
	Outcome Outcome
	// OrderID is set for completed sessions and, when known, for sessions
	// that were processed earlier.
	OrderID int64
	Order   *order.Order
}

// Reconcile converts a paid gateway session into exactly one Confirmed order.
// Delivering the same session again reports OutcomeAlreadyProcessed.
func (s *Service) Reconcile(ctx context.Context, session payment.Session) (Result, error) {
	res, err := s.reconcile(ctx, session)
	if err != nil {
		s.metrics.ObserveReconcile(checkoutOutcome(err))
		if isClientError(err) {
			s.logger.WarnContext(ctx, "payment session rejected", "session_id", session.ID, "error", err)
			return Result{}, err
		}
		s.logger.ErrorContext(ctx, "payment reconciliation failed", "session_id", session.ID, "error", err)
		return Result{}, fmt.Errorf("reconcile session %s: %w", session.ID, err)
	}
	s.metrics.ObserveReconcile(string(res.Outcome))
	return res, nil
}

func (s *Service) reconcile(ctx context.Context, session payment.Session) (Result, error) {
	if !session.Paid() {
		return Result{Outcome: OutcomeNotPaid}, nil
	}
	if session.ID == "" {
		return Result{}, ErrMissingSessionID
	}
	userID, ok := session.UserID()
	if !ok {
		return Result{}, ErrMissingUserID
	}

	shippingAddress := session.ShippingAddress()
	if shippingAddress == "" {
		shippingAddress = PlaceholderShippingAddress
	}

	p, res, err := s.reconcileTx(ctx, session, userID, shippingAddress)
	if err != nil || res.Outcome != OutcomeCompleted {
		return res, err
	}

	if !p.order.TotalAmount.Equal(session.Amount()) {
		s.logger.WarnContext(ctx, "paid amount differs from order total",
			"session_id", session.ID, "order_id", p.order.ID,
			"paid", session.Amount().String(), "total", p.order.TotalAmount.String())
	}
	s.logger.InfoContext(ctx, "order placed",
		"order_id", p.order.ID, "user_id", userID, "total", p.order.TotalAmount.String(),
		"source", events.SourcePayment, "session_id", session.ID)
	s.publish(ctx, p, events.SourcePayment, session.ID)
	return res, nil
}

func (s *Service) reconcileTx(ctx context.Context, session payment.Session, userID int64, shippingAddress string) (placed, Result, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return placed{}, Result{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The cart lock also serialises concurrent deliveries of the same
	// session, so the ledger lookup below sees the winner's commit.
	cartID, found, err := s.carts.LockCartWithTx(ctx, tx, userID)
	if err != nil {
		return placed{}, Result{}, stockConflict(err)
	}

	orderID, done, err := s.ledger.FindWithTx(ctx, tx, session.ID)
	if err != nil {
		return placed{}, Result{}, err
	}
	if done {
		return placed{}, Result{Outcome: OutcomeAlreadyProcessed, OrderID: orderID}, nil
	}
	if !found {
		return placed{}, Result{}, ErrEmptyCart
	}

	p, err := s.placeOrder(ctx, tx, userID, cartID, order.StatusConfirmed, shippingAddress)
	if err != nil {
		return placed{}, Result{}, err
	}

	claimed, err := s.ledger.ClaimWithTx(ctx, tx, dedup.ProcessedSession{
		SessionID: session.ID,
		OrderID:   p.order.ID,
		UserID:    userID,
		Amount:    session.Amount(),
	})
	if err != nil {
		return placed{}, Result{}, err
	}
	if !claimed {
		return placed{}, Result{Outcome: OutcomeAlreadyProcessed}, nil
	}

	if err := tx.Commit(ctx); err != nil {
		if db.IsUniqueViolation(err) {
			return placed{}, Result{Outcome: OutcomeAlreadyProcessed}, nil
		}
		return placed{}, Result{}, stockConflict(fmt.Errorf("commit: %w", err))
	}
	return p, Result{Outcome: OutcomeCompleted, OrderID: p.order.ID, Order: p.order}, nil
}

type SyncResult struct {
	SessionID string  `json:"sessionId"`
	Outcome   Outcome `json:"outcome,omitempty"`
	OrderID   int64   `json:"orderId,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type SyncSummary struct {
	TotalProcessed int          `json:"totalProcessed"`
	SuccessCount   int          `json:"successCount"`
	SkippedCount   int          `json:"skippedCount"`
	ErrorCount     int          `json:"errorCount"`
	Results        []SyncResult `json:"results"`
}

// ReconcileSessions fetches and reconciles each session independently; one
// bad id never fails the batch.
func (s *Service) ReconcileSessions(ctx context.Context, sessionIDs []string) SyncSummary {
	sum := SyncSummary{Results: make([]SyncResult, 0, len(sessionIDs))}

	for _, id := range sessionIDs {
		sum.TotalProcessed++
		r := SyncResult{SessionID: id}

		res, err := s.syncOne(ctx, id)
		switch {
		case err != nil:
			sum.ErrorCount++
			r.Error = err.Error()
		case res.Outcome == OutcomeCompleted:
			sum.SuccessCount++
			r.Outcome, r.OrderID = res.Outcome, res.OrderID
		default:
			sum.SkippedCount++
			r.Outcome, r.OrderID = res.Outcome, res.OrderID
		}
		sum.Results = append(sum.Results, r)
	}

	s.logger.InfoContext(ctx, "historical payment sync finished",
		"total", sum.TotalProcessed, "success", sum.SuccessCount,
		"skipped", sum.SkippedCount, "errors", sum.ErrorCount)
	return sum
}

func (s *Service) syncOne(ctx context.Context, sessionID string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if sessionID == "" {
		return Result{}, ErrMissingSessionID
	}
	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch session: %w", err)
	}
	return s.Reconcile(ctx, session)
}
