package models_test

import (
	"context"
	"testing"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsStore_DefaultsWhenMissing(t *testing.T) {
	db := openTestDB(t)
	store := models.NewSettingsStore(db, quietLogger(), nil)
	ctx := context.Background()

	requireDecimal(t, "0.14", store.GetDecimal(ctx, models.SettingVatRate, decimal.RequireFromString("0.14")))
	assert.Equal(t, "rules", store.GetString(ctx, models.SettingCalculationStrategy, "rules"))
	assert.Equal(t, 42, store.Get(ctx, "UNKNOWN", 42))
}

func TestSettingsStore_SetAndRead(t *testing.T) {
	db := openTestDB(t)
	store := models.NewSettingsStore(db, quietLogger(), nil)
	ctx := context.Background()

	_, err := store.Set(ctx, &models.NewFinancialSetting{Key: models.SettingVatRate, Value: "0.20", Type: models.SettingTypePercentage})
	require.NoError(t, err)
	requireDecimal(t, "0.2", store.GetDecimal(ctx, models.SettingVatRate, decimal.RequireFromString("0.14")))

	// upsert replaces the value in place
	saved, err := store.Set(ctx, &models.NewFinancialSetting{Key: models.SettingVatRate, Value: "0.15", Type: models.SettingTypePercentage})
	require.NoError(t, err)
	assert.True(t, saved.Active())
	requireDecimal(t, "0.15", store.GetDecimal(ctx, models.SettingVatRate, decimal.Zero))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSettingsStore_InactiveFallsBack(t *testing.T) {
	db := openTestDB(t)
	store := models.NewSettingsStore(db, quietLogger(), nil)
	ctx := context.Background()

	_, err := store.Set(ctx, &models.NewFinancialSetting{Key: models.SettingSalesTaxRate, Value: "0.09", Type: models.SettingTypePercentage})
	require.NoError(t, err)
	require.NoError(t, store.Deactivate(ctx, models.SettingSalesTaxRate))

	requireDecimal(t, "0.05", store.GetDecimal(ctx, models.SettingSalesTaxRate, decimal.RequireFromString("0.05")))
	assert.True(t, utils.IsNotFound(store.Deactivate(ctx, "NOPE")))
}

func TestSettingsStore_JSONSettings(t *testing.T) {
	db := openTestDB(t)
	store := models.NewSettingsStore(db, quietLogger(), nil)
	ctx := context.Background()

	_, err := store.Set(ctx, &models.NewFinancialSetting{Key: "TIERS", Value: `{"levels":[1,2]}`, Type: models.SettingTypeJSON})
	require.NoError(t, err)
	var tiers struct {
		Levels []int `json:"levels"`
	}
	assert.True(t, store.GetJSON(ctx, "TIERS", &tiers))
	assert.Equal(t, []int{1, 2}, tiers.Levels)

	_, err = store.Set(ctx, &models.NewFinancialSetting{Key: "BROKEN", Value: `{"levels":`, Type: models.SettingTypeJSON})
	require.NoError(t, err)
	assert.False(t, store.GetJSON(ctx, "BROKEN", &tiers))
	assert.Equal(t, "fallback", store.Get(ctx, "BROKEN", "fallback"))
}

func TestSettingsStore_SetValidates(t *testing.T) {
	db := openTestDB(t)
	store := models.NewSettingsStore(db, quietLogger(), nil)
	ctx := context.Background()

	_, err := store.Set(ctx, &models.NewFinancialSetting{Key: models.SettingVatRate, Value: "fourteen", Type: models.SettingTypePercentage})
	assert.True(t, utils.IsValidation(err))

	_, err = store.Set(ctx, &models.NewFinancialSetting{Key: models.SettingVatRate, Value: "0.14", Type: "ratio"})
	assert.True(t, utils.IsValidation(err))

	_, err = store.Set(ctx, &models.NewFinancialSetting{Key: "", Value: "x", Type: models.SettingTypeText})
	assert.True(t, utils.IsValidation(err))
}

func TestSettingsStore_SetIfMissingKeepsExisting(t *testing.T) {
	db := openTestDB(t)
	store := models.NewSettingsStore(db, quietLogger(), nil)
	ctx := context.Background()

	created, err := store.SetIfMissing(ctx, &models.NewFinancialSetting{Key: models.SettingVatRate, Value: "0.20", Type: models.SettingTypePercentage})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.SetIfMissing(ctx, &models.NewFinancialSetting{Key: models.SettingVatRate, Value: "0.14", Type: models.SettingTypePercentage})
	require.NoError(t, err)
	assert.False(t, created)
	requireDecimal(t, "0.2", store.GetDecimal(ctx, models.SettingVatRate, decimal.Zero))
}
