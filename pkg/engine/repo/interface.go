package repo

import (
	"context"

	"github.com/joripage/tokenex/pkg/engine/model"
)

type IOrder interface {
	Upsert(ctx context.Context, record *model.Order) (*model.Order, error)
	BulkUpsert(ctx context.Context, records []*model.Order) ([]*model.Order, error)
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindByOwner(ctx context.Context, ownerID string, limit int) ([]*model.Order, error)
}

type ITrade interface {
	Create(ctx context.Context, record *model.Trade) (*model.Trade, error)
	BulkCreate(ctx context.Context, records []*model.Trade) ([]*model.Trade, error)
	RecentByPair(ctx context.Context, pair string, limit int) ([]*model.Trade, error)
}
