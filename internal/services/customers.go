package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/storedeskapp/storedesk/internal/cache"
	"github.com/storedeskapp/storedesk/internal/db"
	"github.com/storedeskapp/storedesk/internal/logging"
	"github.com/storedeskapp/storedesk/internal/models"
)

// contactCacheTTL keeps resolved contacts warm across a bulk sweep without
// letting a renamed customer stay stale for long.
const contactCacheTTL = 5 * time.Minute

type contactStore interface {
	FindContactByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	List(ctx context.Context, limit, offset int64) ([]*models.Customer, error)
}

// CustomerResolver turns customer ids into credential-stripped contact
// records. A missing customer resolves to nil without error; callers
// treat that as "notify nobody", not as a fault.
type CustomerResolver struct {
	store  contactStore
	cache  cache.Provider
	logger *slog.Logger
}

func NewCustomerResolver(store contactStore, cacheProvider cache.Provider, logger *slog.Logger) *CustomerResolver {
	return &CustomerResolver{
		store:  store,
		cache:  cacheProvider,
		logger: logger,
	}
}

func (r *CustomerResolver) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, r.logger)
}

func (r *CustomerResolver) Resolve(ctx context.Context, customerID primitive.ObjectID) (*models.Contact, error) {
	logger := r.loggerFromContext(ctx)
	key := cache.ContactKey(customerID.Hex())

	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key); err == nil {
			var contact models.Contact
			if unmarshalErr := json.Unmarshal([]byte(cached), &contact); unmarshalErr == nil {
				return &contact, nil
			}
			logger.Warn("discarding undecodable cached contact", "customer_id", customerID.Hex())
		} else if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("contact cache read failed", "error", err, "customer_id", customerID.Hex())
		}
	}

	customer, err := r.store.FindContactByID(ctx, customerID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}

	contact := customer.ContactView()
	if r.cache != nil {
		if encoded, marshalErr := json.Marshal(contact); marshalErr == nil {
			if cacheErr := r.cache.Set(ctx, key, string(encoded), contactCacheTTL); cacheErr != nil {
				logger.Warn("contact cache write failed", "error", cacheErr, "customer_id", customerID.Hex())
			}
		}
	}
	return &contact, nil
}

// ListContacts returns credential-stripped customer records for the
// dashboard customer list.
func (r *CustomerResolver) ListContacts(ctx context.Context, limit, offset int64) ([]models.Contact, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	customers, err := r.store.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	contacts := make([]models.Contact, 0, len(customers))
	for _, customer := range customers {
		contacts = append(contacts, customer.ContactView())
	}
	return contacts, nil
}
