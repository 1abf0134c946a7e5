package middlewares

import (
	"context"
	"time"

	"bitbucket.org/broman/realty_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	UnitLoader *dataloader.Loader[int, *models.Unit]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(conn *gorm.DB) *Loaders {
	unitReader := &unitReader{db: conn}

	return &Loaders{
		UnitLoader: dataloader.NewBatchedLoader(unitReader.getUnits, dataloader.WithWait[int, *models.Unit](time.Millisecond)),
	}
}

// LoaderMiddleware gives every request a fresh set of loaders so cached rows never outlive it.
func LoaderMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(db)
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// WithLoaders attaches loaders outside of a gin request, e.g. in tools and tests.
func WithLoaders(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, loadersKey, NewLoaders(db))
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns results from db into dataloader results, in the order of ids
func generateLoaderResults[T models.Identifier](results []*T, ids []int, notFound func(id int) error) []*dataloader.Result[*T] {
	resultMap := make(map[int]*T, len(results))
	for _, result := range results {
		resultMap[(*result).GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data, ok := resultMap[id]
		if !ok {
			loaderResults = append(loaderResults, &dataloader.Result[*T]{Error: notFound(id)})
			continue
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: data})
	}
	return loaderResults
}
