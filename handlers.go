package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/broman/realty_backend/middlewares"
	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/models/reports"
	"bitbucket.org/broman/realty_backend/utils"
	"bitbucket.org/broman/realty_backend/workflow"
	"github.com/gin-gonic/gin"
)

type api struct {
	svc      *workflow.Service
	reporter *reports.Reporter
}

func statusFor(err error) int {
	switch {
	case utils.IsNotFound(err):
		return http.StatusNotFound
	case utils.IsValidation(err):
		return http.StatusBadRequest
	case utils.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondError(c, utils.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		respondError(c, utils.NewValidationError(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string) (*int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, utils.NewValidationError(name, "must be an integer"))
		return nil, false
	}
	return &v, true
}

func dateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	d, err := utils.ParseDate(raw)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return &d, true
}

func dateRangeQuery(c *gin.Context) (from, to *time.Time, ok bool) {
	if from, ok = dateQuery(c, "from_date"); !ok {
		return nil, nil, false
	}
	if to, ok = dateQuery(c, "to_date"); !ok {
		return nil, nil, false
	}
	return from, to, true
}

// unitsById resolves units through the request dataloader. Deleted units are skipped.
func unitsById(ctx context.Context, ids []int) (map[int]*models.Unit, error) {
	out := make(map[int]*models.Unit, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	units, errs := middlewares.GetUnits(ctx, ids)
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			if utils.IsNotFound(errs[i]) {
				continue
			}
			return nil, errs[i]
		}
		out[id] = units[i]
	}
	return out, nil
}

func mutationResponse(key string, value any, outcome *workflow.Outcome) gin.H {
	body := gin.H{key: value}
	if outcome != nil {
		body["cashier"] = outcome
	}
	return body
}
