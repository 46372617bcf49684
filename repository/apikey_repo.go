package repository

import (
	"context"
	"time"

	"homeapi-backend/dal"
	"homeapi-backend/models"
	"homeapi-backend/utils"
	"homeapi-backend/utils/logger"
)

// UserEmailIndex is the GSI that maps API-key owners to their keys.
const UserEmailIndex = "user_email-index"

// apiKeySortKey is the fixed sentinel sort key of every ApiKey item.
const apiKeySortKey = "APIKEY"

// ApiKeyRepository manages API-key records: hash-keyed lookup, owner
// listing via the GSI, creation and deletion.
type ApiKeyRepository struct {
	db     *dal.DynamoDBClient
	config *models.Config
	logger logger.Logger
}

// NewApiKeyRepository creates a new API-key repository
func NewApiKeyRepository(db *dal.DynamoDBClient, cfg *models.Config, log logger.Logger) *ApiKeyRepository {
	return &ApiKeyRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

// GetByHash fetches the API-key record stored under a SHA-256 hex digest.
func (r *ApiKeyRepository) GetByHash(ctx context.Context, keyHash string) (*models.ApiKey, error) {
	item, err := r.db.GetItem(ctx, keyHash, apiKeySortKey)
	if err != nil {
		return nil, err
	}
	return dal.DecodeItem[models.ApiKey](item)
}

// ListByOwner returns every API key owned by an email address.
func (r *ApiKeyRepository) ListByOwner(ctx context.Context, email string) ([]*models.ApiKey, error) {
	items, err := r.db.QueryIndex(ctx, UserEmailIndex, "user_email", email)
	if err != nil {
		return nil, err
	}
	return dal.DecodeItems[models.ApiKey](items)
}

// Create mints a new API key for the owner and stores its record. The
// cleartext key is returned exactly once; only its digest is persisted.
func (r *ApiKeyRepository) Create(ctx context.Context, email, name string, expiresAt *time.Time) (*models.ApiKey, string, error) {
	key := utils.GenerateAPIKey()
	rec := &models.ApiKey{
		KeyHash:   utils.HashAPIKey(key),
		UserEmail: email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}

	item, err := dal.EncodeItem(rec)
	if err != nil {
		return nil, "", err
	}
	if err := r.db.PutItem(ctx, item); err != nil {
		return nil, "", err
	}

	r.logger.Infof("API key created for %s: %s", email, name)
	return rec, key, nil
}

// Delete removes the API-key record stored under a hash. Ownership must be
// verified by the caller before deleting.
func (r *ApiKeyRepository) Delete(ctx context.Context, keyHash string) error {
	return r.db.DeleteItem(ctx, keyHash, apiKeySortKey)
}

// MarkUsed records the key's last-used timestamp in a detached background
// write. The triggering request never waits for it and never fails because
// of it; a failure is only logged.
func (r *ApiKeyRepository) MarkUsed(key *models.ApiKey) {
	updated := *key
	now := time.Now().UTC()
	updated.LastUsedAt = &now

	go func() {
		item, err := dal.EncodeItem(&updated)
		if err != nil {
			r.logger.Warnf("Failed to encode last-used update for key %s: %v", key.Name, err)
			return
		}
		if err := r.db.PutItem(context.Background(), item); err != nil {
			r.logger.Warnf("Failed to record last-used for key %s: %v", key.Name, err)
		}
	}()
}
