package models

import (
	"context"
	"errors"

	"bitbucket.org/broman/realty_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate adds SELECT ... FOR UPDATE. Dialects without row locks ignore it.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// fetchById loads one row by primary key and maps a miss to *utils.NotFoundError.
func fetchById[T any](ctx context.Context, db *gorm.DB, entity string, id int, lock bool) (*T, error) {
	var result T
	dbCtx := db.WithContext(ctx)
	if lock {
		dbCtx = ForUpdate(dbCtx)
	}
	if err := dbCtx.First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFound(entity, id)
		}
		return nil, err
	}
	return &result, nil
}
