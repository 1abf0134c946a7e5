package models_test

import (
	"context"
	"testing"

	"bitbucket.org/broman/realty_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaults_Idempotent(t *testing.T) {
	db := openTestDB(t)
	store := models.NewSettingsStore(db, quietLogger(), nil)
	ctx := context.Background()

	first, err := models.SeedDefaults(ctx, db, store)
	require.NoError(t, err)
	assert.Equal(t, len(models.DefaultSettings()), first.Settings)
	assert.Equal(t, len(models.DefaultSalesRules()), first.Rules)
	assert.Equal(t, 10, first.Categories)

	second, err := models.SeedDefaults(ctx, db, store)
	require.NoError(t, err)
	assert.Zero(t, second.Settings)
	assert.Zero(t, second.Rules)
	assert.Zero(t, second.Categories)

	balance, err := models.NewGormLedgerStore().ReadBalance(ctx, db)
	require.NoError(t, err)
	assert.True(t, balance.Balance.IsZero())
	assert.NotZero(t, balance.ID)
}

func TestUnitTypeKey(t *testing.T) {
	assert.Equal(t, models.UnitTypeKeyMedical, models.UnitTypeKey("طبي"))
	assert.Equal(t, models.UnitTypeKeyCommercial, models.UnitTypeKey(" Commercial "))
	assert.Equal(t, models.UnitTypeKeyAdministrative, models.UnitTypeKey("إداري"))
	assert.Equal(t, models.UnitTypeKeyApartment, models.UnitTypeKey("penthouse"))
	assert.Equal(t, "COMPANY_COMMISSION_MEDICAL", models.CompanyCommissionKey(models.UnitTypeKeyMedical))
}
