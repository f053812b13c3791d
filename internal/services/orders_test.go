package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/storedeskapp/storedesk/internal/db"
	"github.com/storedeskapp/storedesk/internal/lifecycle"
	"github.com/storedeskapp/storedesk/internal/models"
	"github.com/storedeskapp/storedesk/internal/validation"
)

type fakeOrderStore struct {
	mu         sync.Mutex
	orders     map[primitive.ObjectID]*models.Order
	now        time.Time
	findErr    error
	updateErr  error
	ledgerErr  error
	sweepErr   error
}

func newFakeOrderStore(orders ...*models.Order) *fakeOrderStore {
	store := &fakeOrderStore{
		orders: map[primitive.ObjectID]*models.Order{},
		now:    time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC),
	}
	for _, order := range orders {
		store.orders[order.ID] = order
	}
	return store
}

func (f *fakeOrderStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	order, ok := f.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	snapshot := *order
	return &snapshot, nil
}

func (f *fakeOrderStore) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.OrderStatus, trackingID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	order, ok := f.orders[id]
	if !ok {
		return 0, nil
	}

	changed := order.Status != status ||
		order.IsDelivered != (status == models.StatusDelivered) ||
		(trackingID != "" && order.TrackingID != trackingID)
	if status != models.StatusDelivered && order.DeliveredAt != nil {
		changed = true
	}
	if !changed {
		return 0, nil
	}

	order.Status = status
	order.IsDelivered = status == models.StatusDelivered
	if trackingID != "" {
		order.TrackingID = trackingID
	}
	if status == models.StatusDelivered {
		deliveredAt := f.now
		order.DeliveredAt = &deliveredAt
	} else {
		order.DeliveredAt = nil
	}
	return 1, nil
}

func (f *fakeOrderStore) AddNotifiedStatus(_ context.Context, id primitive.ObjectID, status models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledgerErr != nil {
		return f.ledgerErr
	}
	order, ok := f.orders[id]
	if !ok {
		return nil
	}
	if !order.HasNotified(status) {
		order.NotifiedStatuses = append(order.NotifiedStatuses, status)
	}
	return nil
}

func (f *fakeOrderStore) MarkPaid(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.IsPaid {
		return 0, nil
	}
	order.IsPaid = true
	paidAt := f.now
	order.PaidAt = &paidAt
	return 1, nil
}

func (f *fakeOrderStore) FindPlacedUnnotified(_ context.Context) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sweepErr != nil {
		return nil, f.sweepErr
	}
	var out []*models.Order
	for _, order := range f.orders {
		if order.Status == models.StatusPlaced && !order.HasNotified(models.StatusPlaced) {
			snapshot := *order
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) List(_ context.Context, limit, offset int64) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, order := range f.orders {
		snapshot := *order
		out = append(out, &snapshot)
	}
	return out, nil
}

func (f *fakeOrderStore) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return 0, nil
	}
	delete(f.orders, id)
	return 1, nil
}

func (f *fakeOrderStore) get(id primitive.ObjectID) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

type fakeResolver struct {
	contacts map[primitive.ObjectID]*models.Contact
	errFor   map[primitive.ObjectID]error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		contacts: map[primitive.ObjectID]*models.Contact{},
		errFor:   map[primitive.ObjectID]error{},
	}
}

func (f *fakeResolver) Resolve(_ context.Context, customerID primitive.ObjectID) (*models.Contact, error) {
	if err := f.errFor[customerID]; err != nil {
		return nil, err
	}
	return f.contacts[customerID], nil
}

type sentEmail struct {
	kind    string
	orderID string
	status  models.OrderStatus
	to      string
}

type fakeEmailSender struct {
	mu      sync.Mutex
	sent    []sentEmail
	failFor map[string]error
}

func newFakeEmailSender() *fakeEmailSender {
	return &fakeEmailSender{failFor: map[string]error{}}
}

func (f *fakeEmailSender) SendStatusUpdate(_ context.Context, to models.Contact, orderID string, status models.OrderStatus, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[orderID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentEmail{kind: "status", orderID: orderID, status: status, to: to.Email})
	return nil
}

func (f *fakeEmailSender) SendOrderConfirmation(_ context.Context, to models.Contact, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	orderID := order.ID.Hex()
	if err := f.failFor[orderID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentEmail{kind: "confirmation", orderID: orderID, to: to.Email})
	return nil
}

func (f *fakeEmailSender) SendPasswordReset(context.Context, models.Contact, string, time.Duration) error {
	return nil
}

func (f *fakeEmailSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func placedOrder(customerID primitive.ObjectID) *models.Order {
	return &models.Order{
		ID:         primitive.NewObjectID(),
		CustomerID: customerID,
		Items:      []models.OrderItem{{Name: "tote bag", Quantity: 1, UnitPrice: 1999}},
		TotalPrice: 1999,
		Status:     models.StatusPlaced,
		CreatedAt:  time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
	}
}

type orderServiceFixture struct {
	service  *OrderService
	store    *fakeOrderStore
	resolver *fakeResolver
	sender   *fakeEmailSender
}

func newOrderServiceFixture(policy lifecycle.TransitionPolicy, orders ...*models.Order) *orderServiceFixture {
	store := newFakeOrderStore(orders...)
	resolver := newFakeResolver()
	sender := newFakeEmailSender()
	service := NewOrderService(store, resolver, sender, policy, validation.New(), discardLogger())
	return &orderServiceFixture{service: service, store: store, resolver: resolver, sender: sender}
}

func (fx *orderServiceFixture) withContact(customerID primitive.ObjectID) {
	fx.resolver.contacts[customerID] = &models.Contact{
		ID:    customerID,
		Name:  "Asha Patel",
		Email: "asha@example.com",
	}
}

func TestUpdateOrderStatusDelivered(t *testing.T) {
	t.Parallel()

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	fx := newOrderServiceFixture(nil, order)
	fx.withContact(customerID)

	result := fx.service.UpdateOrderStatus(context.Background(), validation.UpdateOrderStatusRequest{
		OrderID:    order.ID.Hex(),
		Status:     "delivered",
		TrackingID: "TRK-889-IN",
		SendEmail:  true,
	})

	if !result.Success {
		t.Fatalf("UpdateOrderStatus failed: %s", result.Message)
	}

	stored := fx.store.get(order.ID)
	if stored.Status != models.StatusDelivered {
		t.Errorf("status = %s, want delivered", stored.Status)
	}
	if !stored.IsDelivered {
		t.Error("isDelivered not set")
	}
	if stored.DeliveredAt == nil {
		t.Error("deliveredAt not set for delivered order")
	}
	if stored.TrackingID == "" {
		t.Error("tracking id not stored")
	}
	if !stored.HasNotified(models.StatusDelivered) {
		t.Error("delivered notification not recorded in ledger")
	}
	if fx.sender.sentCount() != 1 {
		t.Errorf("sent %d emails, want 1", fx.sender.sentCount())
	}
}

func TestUpdateOrderStatusRevertFromDeliveredRemovesTimestamp(t *testing.T) {
	t.Parallel()

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	deliveredAt := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	order.Status = models.StatusDelivered
	order.IsDelivered = true
	order.DeliveredAt = &deliveredAt

	fx := newOrderServiceFixture(nil, order)

	result := fx.service.UpdateOrderStatus(context.Background(), validation.UpdateOrderStatusRequest{
		OrderID: order.ID.Hex(),
		Status:  "refund-initiated",
	})

	if !result.Success {
		t.Fatalf("UpdateOrderStatus failed: %s", result.Message)
	}

	stored := fx.store.get(order.ID)
	if stored.IsDelivered {
		t.Error("isDelivered still set after leaving delivered")
	}
	if stored.DeliveredAt != nil {
		t.Error("deliveredAt survived a transition away from delivered")
	}
}

func TestUpdateOrderStatusSkipsDuplicateNotification(t *testing.T) {
	t.Parallel()

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	order.NotifiedStatuses = []models.OrderStatus{models.StatusDispatched}

	fx := newOrderServiceFixture(nil, order)
	fx.withContact(customerID)

	result := fx.service.UpdateOrderStatus(context.Background(), validation.UpdateOrderStatusRequest{
		OrderID:   order.ID.Hex(),
		Status:    "dispatched",
		SendEmail: true,
	})

	if !result.Success {
		t.Fatalf("UpdateOrderStatus failed: %s", result.Message)
	}
	if fx.sender.sentCount() != 0 {
		t.Errorf("sent %d emails after the status was already notified, want 0", fx.sender.sentCount())
	}
	if !strings.Contains(result.Message, "already notified") {
		t.Errorf("message = %q, want mention of prior notification", result.Message)
	}
}

func TestUpdateOrderStatusValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     validation.UpdateOrderStatusRequest
		wantField string
	}{
		{
			name:      "missing order id",
			input:     validation.UpdateOrderStatusRequest{Status: "placed"},
			wantField: "order_id",
		},
		{
			name:      "short order id",
			input:     validation.UpdateOrderStatusRequest{OrderID: "abc123", Status: "placed"},
			wantField: "order_id",
		},
		{
			name:      "unknown status",
			input:     validation.UpdateOrderStatusRequest{OrderID: strings.Repeat("a", 24), Status: "shipped"},
			wantField: "status",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fx := newOrderServiceFixture(nil)
			result := fx.service.UpdateOrderStatus(context.Background(), tc.input)

			if result.Success {
				t.Fatal("expected validation failure")
			}
			if _, ok := result.Errors[tc.wantField]; !ok {
				t.Errorf("errors = %v, want entry for %q", result.Errors, tc.wantField)
			}
		})
	}
}

func TestUpdateOrderStatusOrderNotFound(t *testing.T) {
	t.Parallel()

	fx := newOrderServiceFixture(nil)
	result := fx.service.UpdateOrderStatus(context.Background(), validation.UpdateOrderStatusRequest{
		OrderID: primitive.NewObjectID().Hex(),
		Status:  "dispatched",
	})

	if result.Success {
		t.Fatal("expected failure for missing order")
	}
	if result.Message != "order not found" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestUpdateOrderStatusPolicyRejectsTransition(t *testing.T) {
	t.Parallel()

	policy, err := lifecycle.LoadGraphPolicy(strings.NewReader(`
transitions:
  placed: [dispatched]
  dispatched: [delivered]
`))
	if err != nil {
		t.Fatalf("LoadGraphPolicy: %v", err)
	}

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	fx := newOrderServiceFixture(policy, order)

	result := fx.service.UpdateOrderStatus(context.Background(), validation.UpdateOrderStatusRequest{
		OrderID: order.ID.Hex(),
		Status:  "delivered",
	})

	if result.Success {
		t.Fatal("expected policy rejection")
	}
	if !strings.Contains(result.Message, "not allowed") {
		t.Errorf("message = %q", result.Message)
	}
	if stored := fx.store.get(order.ID); stored.Status != models.StatusPlaced {
		t.Errorf("status changed to %s despite rejection", stored.Status)
	}
}

func TestUpdateOrderStatusNoChanges(t *testing.T) {
	t.Parallel()

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	fx := newOrderServiceFixture(nil, order)

	result := fx.service.UpdateOrderStatus(context.Background(), validation.UpdateOrderStatusRequest{
		OrderID: order.ID.Hex(),
		Status:  "placed",
	})

	if result.Success {
		t.Fatal("expected failure for a no-op update")
	}
	if result.Message != "no changes were made" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestUpdateOrderStatusEmailFailureSoftens(t *testing.T) {
	t.Parallel()

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	fx := newOrderServiceFixture(nil, order)
	fx.withContact(customerID)
	fx.sender.failFor[order.ID.Hex()] = errors.New("smtp relay down")

	result := fx.service.UpdateOrderStatus(context.Background(), validation.UpdateOrderStatusRequest{
		OrderID:   order.ID.Hex(),
		Status:    "dispatched",
		SendEmail: true,
	})

	if !result.Success {
		t.Fatalf("status update failed because of email trouble: %s", result.Message)
	}
	if !strings.Contains(result.Message, "could not be notified") {
		t.Errorf("message = %q, want mention of failed notification", result.Message)
	}

	stored := fx.store.get(order.ID)
	if stored.Status != models.StatusDispatched {
		t.Errorf("status = %s, want dispatched", stored.Status)
	}
	if stored.HasNotified(models.StatusDispatched) {
		t.Error("ledger recorded a notification that never went out")
	}
}

func TestUpdateOrderStatusResolverFailureSoftens(t *testing.T) {
	t.Parallel()

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	fx := newOrderServiceFixture(nil, order)
	fx.resolver.errFor[customerID] = errors.New("customers collection unreachable")

	result := fx.service.UpdateOrderStatus(context.Background(), validation.UpdateOrderStatusRequest{
		OrderID:   order.ID.Hex(),
		Status:    "dispatched",
		SendEmail: true,
	})

	if !result.Success {
		t.Fatalf("status update failed because of resolver trouble: %s", result.Message)
	}
	if fx.sender.sentCount() != 0 {
		t.Error("email sent without a resolved contact")
	}
}

func TestSweepConfirmationsPartialFailure(t *testing.T) {
	t.Parallel()

	okCustomer := primitive.NewObjectID()
	missingCustomer := primitive.NewObjectID()
	bouncingCustomer := primitive.NewObjectID()

	okOrder := placedOrder(okCustomer)
	orphanOrder := placedOrder(missingCustomer)
	bouncingOrder := placedOrder(bouncingCustomer)

	fx := newOrderServiceFixture(nil, okOrder, orphanOrder, bouncingOrder)
	fx.withContact(okCustomer)
	fx.resolver.contacts[bouncingCustomer] = &models.Contact{ID: bouncingCustomer, Name: "Ravi", Email: "ravi@example.com"}
	fx.sender.failFor[bouncingOrder.ID.Hex()] = errors.New("mailbox full")

	sent, failed, err := fx.service.sweepConfirmations(context.Background())
	if err != nil {
		t.Fatalf("sweepConfirmations: %v", err)
	}
	if sent != 1 || failed != 2 {
		t.Fatalf("sent = %d, failed = %d, want 1 and 2", sent, failed)
	}
	if sent+failed != 3 {
		t.Fatalf("sweep lost orders: %d accounted, want 3", sent+failed)
	}

	if !fx.store.get(okOrder.ID).HasNotified(models.StatusPlaced) {
		t.Error("successful confirmation missing from ledger")
	}
	if fx.store.get(bouncingOrder.ID).HasNotified(models.StatusPlaced) {
		t.Error("failed confirmation recorded in ledger")
	}
}

func TestSweepConfirmationsIdempotent(t *testing.T) {
	t.Parallel()

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	fx := newOrderServiceFixture(nil, order)
	fx.withContact(customerID)

	sent, failed, err := fx.service.sweepConfirmations(context.Background())
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if sent != 1 || failed != 0 {
		t.Fatalf("first sweep sent = %d, failed = %d", sent, failed)
	}

	sent, failed, err = fx.service.sweepConfirmations(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if sent != 0 || failed != 0 {
		t.Fatalf("second sweep resent confirmations: sent = %d, failed = %d", sent, failed)
	}
	if fx.sender.sentCount() != 1 {
		t.Errorf("sent %d confirmations in total, want 1", fx.sender.sentCount())
	}

	result := fx.service.SendBulkConfirmations(context.Background())
	if !result.Success || result.Message != "no orders awaiting confirmation" {
		t.Errorf("result = %+v", result)
	}
}

func TestMarkOrderPaid(t *testing.T) {
	t.Parallel()

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	fx := newOrderServiceFixture(nil, order)

	result := fx.service.MarkOrderPaid(context.Background(), order.ID.Hex())
	if !result.Success {
		t.Fatalf("MarkOrderPaid failed: %s", result.Message)
	}

	stored := fx.store.get(order.ID)
	if !stored.IsPaid || stored.PaidAt == nil {
		t.Error("paid flag or timestamp missing")
	}

	result = fx.service.MarkOrderPaid(context.Background(), order.ID.Hex())
	if result.Success {
		t.Fatal("marking an already-paid order succeeded")
	}
	if result.Message != "no changes were made" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestDeleteOrder(t *testing.T) {
	t.Parallel()

	customerID := primitive.NewObjectID()
	order := placedOrder(customerID)
	fx := newOrderServiceFixture(nil, order)

	result := fx.service.DeleteOrder(context.Background(), order.ID.Hex())
	if !result.Success {
		t.Fatalf("DeleteOrder failed: %s", result.Message)
	}

	result = fx.service.DeleteOrder(context.Background(), order.ID.Hex())
	if result.Success {
		t.Fatal("deleting a missing order succeeded")
	}
	if result.Message != "order not found" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	t.Parallel()

	fx := newOrderServiceFixture(nil)
	_, err := fx.service.GetOrder(context.Background(), primitive.NewObjectID().Hex())
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("err = %v, want db.ErrNotFound", err)
	}
}
