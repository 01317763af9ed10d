package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	Order() IOrder
	Trade() ITrade
}

type Repo struct {
	engineDB *gorm.DB
}

func NewRepo(engineDB *gorm.DB) IRepo {
	return &Repo{
		engineDB: engineDB,
	}
}

func (r *Repo) Order() IOrder {
	return NewOrderSQLRepo(r.engineDB)
}

func (r *Repo) Trade() ITrade {
	return NewTradeSQLRepo(r.engineDB)
}
