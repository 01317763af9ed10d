package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joripage/tokenex/pkg/engine/model"
)

type TradeSQLRepo struct {
	db *gorm.DB
}

func NewTradeSQLRepo(db *gorm.DB) *TradeSQLRepo {
	return &TradeSQLRepo{
		db: db,
	}
}

func (s *TradeSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Create inserts one trade. Redelivered events hit the primary key and are
// ignored, keeping the consumer idempotent.
func (s *TradeSQLRepo) Create(ctx context.Context, record *model.Trade) (*model.Trade, error) {
	err := s.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(record).Error
	return record, err
}

func (s *TradeSQLRepo) BulkCreate(ctx context.Context, records []*model.Trade) ([]*model.Trade, error) {
	if len(records) == 0 {
		return records, nil
	}
	err := s.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(records).Error
	return records, err
}

func (s *TradeSQLRepo) RecentByPair(ctx context.Context, pair string, limit int) ([]*model.Trade, error) {
	var records []*model.Trade
	q := s.dbWithContext(ctx).Where("pair = ?", pair).Order("executed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
