package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joripage/tokenex/pkg/engine/model"
)

type OrderSQLRepo struct {
	db *gorm.DB
}

func NewOrderSQLRepo(db *gorm.DB) *OrderSQLRepo {
	return &OrderSQLRepo{
		db: db,
	}
}

func (s *OrderSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Upsert writes the latest snapshot of an order. Snapshots arrive in event
// order per order id, so last write wins.
func (s *OrderSQLRepo) Upsert(ctx context.Context, record *model.Order) (*model.Order, error) {
	err := s.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(record).Error
	return record, err
}

func (s *OrderSQLRepo) BulkUpsert(ctx context.Context, records []*model.Order) ([]*model.Order, error) {
	if len(records) == 0 {
		return records, nil
	}
	err := s.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(records).Error
	return records, err
}

func (s *OrderSQLRepo) FindByID(ctx context.Context, id string) (*model.Order, error) {
	var record model.Order
	if err := s.dbWithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *OrderSQLRepo) FindByOwner(ctx context.Context, ownerID string, limit int) ([]*model.Order, error) {
	var records []*model.Order
	q := s.dbWithContext(ctx).Where("owner_id = ?", ownerID).Order("submitted_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
