package repository

import (
	"context"

	"homeapi-backend/dal"
	"homeapi-backend/models"
	"homeapi-backend/utils/logger"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// RecordRepository is the typed layer over the single-table client: records
// go in and out as domain types, the dal handles keys, conditions and
// pagination.
type RecordRepository struct {
	db     *dal.DynamoDBClient
	config *models.Config
	logger logger.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *dal.DynamoDBClient, cfg *models.Config, log logger.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

// DB exposes the underlying table client for collaborators that work on raw
// keys (auth lookups, index queries).
func (r *RecordRepository) DB() *dal.DynamoDBClient {
	return r.db
}

// Page is one slice of a partition plus the cursor to continue from. The
// boundary flags of a connection are derived by the caller, which knows
// which cursors were supplied.
type Page[T any] struct {
	Items      []*T
	NextCursor string
}

// Get fetches and decodes a single record by its full primary key.
func Get[T any, PT interface {
	*T
	models.KeyedItem
}](ctx context.Context, r *RecordRepository, pk, sk string) (*T, error) {
	item, err := r.db.GetItem(ctx, pk, sk)
	if err != nil {
		return nil, err
	}
	return dal.DecodeItem[T, PT](item)
}

// QueryPage runs one typed pagination page over a partition.
func QueryPage[T any, PT interface {
	*T
	models.KeyedItem
}](ctx context.Context, r *RecordRepository, pk string, cond *dal.Condition, page dal.PageRequest) (Page[T], error) {
	items, next, err := r.db.QueryPage(ctx, pk, cond, page)
	if err != nil {
		return Page[T]{}, err
	}
	records, err := dal.DecodeItems[T, PT](items)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: records, NextCursor: next}, nil
}

// QueryAll exhaustively fetches and decodes a whole partition.
func QueryAll[T any, PT interface {
	*T
	models.KeyedItem
}](ctx context.Context, r *RecordRepository, pk string, cond *dal.Condition) ([]*T, error) {
	items, err := r.db.QueryAll(ctx, pk, cond)
	if err != nil {
		return nil, err
	}
	return dal.DecodeItems[T, PT](items)
}

// Put stores one record, overwriting any previous version at the same key.
func (r *RecordRepository) Put(ctx context.Context, rec models.Item) error {
	item, err := dal.EncodeItem(rec)
	if err != nil {
		return err
	}
	return r.db.PutItem(ctx, item)
}

// PutMany stores records through the chunked batch writer.
func (r *RecordRepository) PutMany(ctx context.Context, recs []models.Item) error {
	items := make([]map[string]types.AttributeValue, 0, len(recs))
	for _, rec := range recs {
		item, err := dal.EncodeItem(rec)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	return r.db.BatchPutItems(ctx, items)
}

// Update applies an attribute-level update that requires the record to
// already exist, and returns the decoded post-update record.
func Update[T any, PT interface {
	*T
	models.KeyedItem
}](ctx context.Context, r *RecordRepository, rec models.Item) (*T, error) {
	item, err := dal.EncodeItem(rec)
	if err != nil {
		return nil, err
	}
	updated, err := r.db.UpdateItem(ctx, item)
	if err != nil {
		return nil, err
	}
	return dal.DecodeItem[T, PT](updated)
}
