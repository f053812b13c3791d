package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/storedeskapp/storedesk/internal/db"
	"github.com/storedeskapp/storedesk/internal/email"
	"github.com/storedeskapp/storedesk/internal/lifecycle"
	"github.com/storedeskapp/storedesk/internal/logging"
	"github.com/storedeskapp/storedesk/internal/models"
	"github.com/storedeskapp/storedesk/internal/observability"
	"github.com/storedeskapp/storedesk/internal/validation"
)

// defaultSendTimeout bounds each outbound email so a slow provider cannot
// hold a status update or a whole sweep hostage.
const defaultSendTimeout = 30 * time.Second

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type orderStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus, trackingID string) (int64, error)
	AddNotifiedStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) error
	MarkPaid(ctx context.Context, id primitive.ObjectID) (int64, error)
	FindPlacedUnnotified(ctx context.Context) ([]*models.Order, error)
	List(ctx context.Context, limit, offset int64) ([]*models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type contactResolver interface {
	Resolve(ctx context.Context, customerID primitive.ObjectID) (*models.Contact, error)
}

type OrderService struct {
	orders      orderStore
	contacts    contactResolver
	emailSender StatusEmailSender
	policy      lifecycle.TransitionPolicy
	validate    *validatorv10.Validate
	sendTimeout time.Duration
	logger      *slog.Logger
}

func NewOrderService(orders orderStore, contacts contactResolver, emailSender StatusEmailSender, policy lifecycle.TransitionPolicy, validate *validatorv10.Validate, logger *slog.Logger) *OrderService {
	if emailSender == nil {
		emailSender = noopStatusEmailSender{}
	}
	if policy == nil {
		policy = lifecycle.AllowAll()
	}
	if validate == nil {
		validate = validation.New()
	}

	return &OrderService{
		orders:      orders,
		contacts:    contacts,
		emailSender: emailSender,
		policy:      policy,
		validate:    validate,
		sendTimeout: defaultSendTimeout,
		logger:      logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// UpdateOrderStatus transitions an order to a new status and, when asked,
// notifies the customer. The status write and the notification are
// decoupled on purpose: once the write has succeeded, email trouble can
// only soften the message, never fail the operation.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, input validation.UpdateOrderStatusRequest) Result {
	span := sentry.StartSpan(
		ctx,
		"service.order.update_status",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("UpdateOrderStatus"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	recordRejection := func(reason string) {
		meter.Count("order.status_update.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}
	meter.Count("order.status_update.received", 1)

	if fields := validation.FieldErrors(s.validate, input); fields != nil {
		recordRejection("invalid_payload")
		return validationFailure(fields)
	}

	orderID, err := primitive.ObjectIDFromHex(input.OrderID)
	if err != nil {
		recordRejection("invalid_order_id")
		return validationFailure(map[string]string{"order_id": "must be a valid order identifier"})
	}

	// Validated by oneof above.
	newStatus, _ := models.ParseStatus(input.Status)

	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, db.ErrNotFound) {
		recordRejection("order_not_found")
		return failure("order not found")
	}
	if err != nil {
		logger.Error("failed to load order", "error", err, "order_id", input.OrderID)
		recordRejection("storage_error")
		return failure(genericFailureMessage)
	}

	if err := s.policy.Allow(order.Status, newStatus); err != nil {
		recordRejection("transition_not_allowed")
		return failure(fmt.Sprintf("transition from %s to %s is not allowed", order.Status, newStatus))
	}

	modified, err := s.orders.UpdateStatus(ctx, orderID, newStatus, input.TrackingID)
	if err != nil {
		logger.Error("failed to update order status", "error", err, "order_id", input.OrderID, "status", newStatus)
		recordRejection("storage_error")
		return failure(genericFailureMessage)
	}
	if modified == 0 {
		return failure("no changes were made")
	}

	meter.Count("order.status_update.applied", 1, sentry.WithAttributes(
		attribute.String("status", string(newStatus)),
	))
	logger.Info("order status updated", "order_id", input.OrderID, "from", order.Status, "to", newStatus)

	if !input.SendEmail {
		return success("order status updated")
	}
	if order.HasNotified(newStatus) {
		logger.Info("skipping duplicate status notification", "order_id", input.OrderID, "status", newStatus)
		return success("order status updated; customer was already notified")
	}

	sent := s.notifyStatus(ctx, order, newStatus, input.TrackingID)
	if !sent {
		return success("order status updated, but the customer could not be notified")
	}
	return success("order status updated and customer notified")
}

// notifyStatus resolves the customer, sends the status email, and records
// the notification in the ledger only after the provider accepted the
// message. Returns whether the notification went out.
func (s *OrderService) notifyStatus(ctx context.Context, order *models.Order, status models.OrderStatus, trackingID string) bool {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	orderID := order.ID.Hex()

	contact, err := s.contacts.Resolve(ctx, order.CustomerID)
	if err != nil {
		logger.Warn("failed to resolve customer for notification", "error", err, "order_id", orderID)
		meter.Count("order.notification.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "resolver_error"),
		))
		return false
	}
	if contact == nil {
		logger.Warn("customer not found, skipping notification", "order_id", orderID, "customer_id", order.CustomerID.Hex())
		meter.Count("order.notification.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "customer_not_found"),
		))
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.emailSender.SendStatusUpdate(sendCtx, *contact, orderID, status, trackingID); err != nil {
		reason := "send_failed"
		if errors.Is(err, email.ErrNotConfigured) {
			reason = "not_configured"
		}
		logger.Warn("failed to send status notification", "error", err, "order_id", orderID, "status", status)
		meter.Count("order.notification.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
		return false
	}

	if err := s.orders.AddNotifiedStatus(ctx, order.ID, status); err != nil {
		// The email went out; a ledger miss means a possible duplicate
		// later, which the set-add semantics absorb.
		logger.Warn("failed to record notified status", "error", err, "order_id", orderID, "status", status)
	}
	meter.Count("order.notification.sent", 1, sentry.WithAttributes(
		attribute.String("status", string(status)),
	))
	logger.Info("status notification sent", "order_id", orderID, "status", status, "email", contact.Email)
	return true
}

// SendBulkConfirmations sweeps every placed order whose confirmation has
// not gone out yet and emails each customer once. One bad order never
// stops the sweep.
func (s *OrderService) SendBulkConfirmations(ctx context.Context) Result {
	span := sentry.StartSpan(
		ctx,
		"service.order.send_bulk_confirmations",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("SendBulkConfirmations"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)

	sent, failed, err := s.sweepConfirmations(ctx)
	if err != nil {
		logger.Error("failed to load orders for confirmation sweep", "error", err)
		return failure(genericFailureMessage)
	}
	if sent == 0 && failed == 0 {
		return success("no orders awaiting confirmation")
	}
	return success(fmt.Sprintf("confirmation sweep complete: %d sent, %d failed", sent, failed))
}

func (s *OrderService) sweepConfirmations(ctx context.Context) (sent, failed int, err error) {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	orders, err := s.orders.FindPlacedUnnotified(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, order := range orders {
		orderID := order.ID.Hex()

		recordFailure := func(reason string) {
			meter.Count("order.confirmation.failed", 1, sentry.WithAttributes(
				attribute.String("reason", reason),
			))
			failed++
		}

		contact, resolveErr := s.contacts.Resolve(ctx, order.CustomerID)
		if resolveErr != nil {
			logger.Warn("failed to resolve customer during sweep", "error", resolveErr, "order_id", orderID)
			recordFailure("resolver_error")
			continue
		}
		if contact == nil {
			logger.Warn("customer not found during sweep", "order_id", orderID, "customer_id", order.CustomerID.Hex())
			recordFailure("customer_not_found")
			continue
		}

		if sendErr := s.sendConfirmation(ctx, *contact, order); sendErr != nil {
			logger.Warn("failed to send order confirmation", "error", sendErr, "order_id", orderID)
			recordFailure("send_failed")
			continue
		}

		if ledgerErr := s.orders.AddNotifiedStatus(ctx, order.ID, models.StatusPlaced); ledgerErr != nil {
			logger.Warn("failed to record confirmation in ledger", "error", ledgerErr, "order_id", orderID)
		}
		meter.Count("order.confirmation.sent", 1)
		sent++
	}

	logger.Info("confirmation sweep finished", "sent", sent, "failed", failed, "total", len(orders))
	return sent, failed, nil
}

func (s *OrderService) sendConfirmation(ctx context.Context, contact models.Contact, order *models.Order) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	return s.emailSender.SendOrderConfirmation(sendCtx, contact, order)
}

// DeleteOrder removes an order document entirely.
func (s *OrderService) DeleteOrder(ctx context.Context, rawOrderID string) Result {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	orderID, result := s.parseOrderID(rawOrderID)
	if result != nil {
		return *result
	}

	deleted, err := s.orders.Delete(ctx, orderID)
	if err != nil {
		logger.Error("failed to delete order", "error", err, "order_id", rawOrderID)
		return failure(genericFailureMessage)
	}
	if deleted == 0 {
		return failure("order not found")
	}

	meter.Count("order.deleted", 1)
	logger.Info("order deleted", "order_id", rawOrderID)
	return success("order deleted")
}

// MarkOrderPaid flags an order as paid. Paying an already-paid order is a
// no-op reported as such rather than an error.
func (s *OrderService) MarkOrderPaid(ctx context.Context, rawOrderID string) Result {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	orderID, result := s.parseOrderID(rawOrderID)
	if result != nil {
		return *result
	}

	modified, err := s.orders.MarkPaid(ctx, orderID)
	if err != nil {
		logger.Error("failed to mark order paid", "error", err, "order_id", rawOrderID)
		return failure(genericFailureMessage)
	}
	if modified == 0 {
		return failure("no changes were made")
	}

	meter.Count("order.marked_paid", 1)
	logger.Info("order marked paid", "order_id", rawOrderID)
	return success("order marked as paid")
}

// GetOrder fetches a single order. Callers distinguish absence via
// db.ErrNotFound.
func (s *OrderService) GetOrder(ctx context.Context, rawOrderID string) (*models.Order, error) {
	orderID, result := s.parseOrderID(rawOrderID)
	if result != nil {
		return nil, db.ErrNotFound
	}
	return s.orders.FindByID(ctx, orderID)
}

// ListOrders returns orders newest first with bounded pagination.
func (s *OrderService) ListOrders(ctx context.Context, limit, offset int64) ([]*models.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.List(ctx, limit, offset)
}

func (s *OrderService) parseOrderID(rawOrderID string) (primitive.ObjectID, *Result) {
	if fields := validation.FieldErrors(s.validate, validation.OrderIDRequest{OrderID: rawOrderID}); fields != nil {
		result := validationFailure(fields)
		return primitive.NilObjectID, &result
	}
	orderID, err := primitive.ObjectIDFromHex(rawOrderID)
	if err != nil {
		result := validationFailure(map[string]string{"order_id": "must be a valid order identifier"})
		return primitive.NilObjectID, &result
	}
	return orderID, nil
}

type noopStatusEmailSender struct{}

func (noopStatusEmailSender) SendStatusUpdate(context.Context, models.Contact, string, models.OrderStatus, string) error {
	return email.ErrNotConfigured
}

func (noopStatusEmailSender) SendOrderConfirmation(context.Context, models.Contact, *models.Order) error {
	return email.ErrNotConfigured
}

func (noopStatusEmailSender) SendPasswordReset(context.Context, models.Contact, string, time.Duration) error {
	return email.ErrNotConfigured
}
