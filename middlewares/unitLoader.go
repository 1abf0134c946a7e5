package middlewares

import (
	"context"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type unitReader struct {
	db *gorm.DB
}

func (r *unitReader) getUnits(ctx context.Context, ids []int) []*dataloader.Result[*models.Unit] {
	results, err := models.GetUnitsByIds(ctx, r.db, ids)
	if err != nil {
		return handleError[*models.Unit](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(id int) error {
		return utils.NewNotFound("unit", id)
	})
}

func GetUnit(ctx context.Context, id int) (*models.Unit, error) {
	loaders := For(ctx)
	return loaders.UnitLoader.Load(ctx, id)()
}

func GetUnits(ctx context.Context, ids []int) ([]*models.Unit, []error) {
	loaders := For(ctx)
	return loaders.UnitLoader.LoadMany(ctx, ids)()
}
