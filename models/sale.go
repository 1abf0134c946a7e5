package models

import (
	"context"
	"time"

	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Sale struct {
	ID                           int             `gorm:"primary_key" json:"id"`
	UnitId                       int             `gorm:"index;not null" json:"unit_id"`
	ClientName                   string          `gorm:"size:100;not null" json:"client_name"`
	SaleDate                     time.Time       `gorm:"not null" json:"sale_date"`
	SalePrice                    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"sale_price"`
	SalespersonId                *int            `gorm:"index" json:"salesperson_id"`
	SalesManagerId               *int            `gorm:"index" json:"sales_manager_id"`
	CompanyCommission            decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"company_commission"`
	SalespersonCommission        decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"salesperson_commission"`
	SalesManagerCommission       decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"sales_manager_commission"`
	TotalTaxes                   decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_taxes"`
	TotalFees                    decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_fees"`
	TotalDiscounts               decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_discounts"`
	NetCompanyRevenue            decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"net_company_revenue"`
	CalculationBreakdown         string          `gorm:"type:text" json:"-"`
	SalespersonCommissionPaidAt  *time.Time      `json:"salesperson_commission_paid_at"`
	SalesManagerCommissionPaidAt *time.Time      `json:"sales_manager_commission_paid_at"`
	Notes                        string          `gorm:"type:text" json:"notes"`
	UserId                       int             `gorm:"index" json:"user_id"`
	CreatedAt                    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Breakdown *CalculationBreakdown `gorm:"-" json:"calculation_breakdown"`
	// BreakdownError is set when the stored breakdown could not be decoded.
	BreakdownError error `gorm:"-" json:"-"`
}

type NewSale struct {
	UnitId         int             `json:"unit_id" validate:"required,gt=0"`
	ClientName     string          `json:"client_name" validate:"required,max=100"`
	SaleDate       string          `json:"sale_date" validate:"required"`
	SalePrice      decimal.Decimal `json:"sale_price" validate:"gte=0"`
	SalespersonId  *int            `json:"salesperson_id" validate:"omitempty,gt=0"`
	SalesManagerId *int            `json:"sales_manager_id" validate:"omitempty,gt=0"`
	Notes          string          `json:"notes"`
}

func (s Sale) GetId() int {
	return s.ID
}

// AfterFind decodes the stored breakdown. A bad document leaves an empty breakdown and BreakdownError.
func (s *Sale) AfterFind(tx *gorm.DB) error {
	b, err := DecodeBreakdown(s.CalculationBreakdown)
	s.Breakdown = &b
	s.BreakdownError = err
	return nil
}

// ApplyBreakdown copies the totals onto the sale and stores the encoded document.
func (s *Sale) ApplyBreakdown(b *CalculationBreakdown) error {
	encoded, err := b.Encode()
	if err != nil {
		return err
	}
	s.CompanyCommission = b.Totals.CompanyCommission
	s.SalespersonCommission = b.Totals.SalespersonCommission
	s.SalesManagerCommission = b.Totals.SalesManagerCommission
	s.TotalTaxes = b.Totals.TotalTaxes
	s.TotalFees = b.Totals.TotalFees
	s.TotalDiscounts = b.Totals.TotalDiscounts
	s.NetCompanyRevenue = b.Totals.NetCompanyRevenue
	s.CalculationBreakdown = encoded
	s.Breakdown = b
	s.BreakdownError = nil
	return nil
}

func GetSale(ctx context.Context, db *gorm.DB, id int) (*Sale, error) {
	return fetchById[Sale](ctx, db, "sale", id, false)
}

func GetSaleForUpdate(ctx context.Context, tx *gorm.DB, id int) (*Sale, error) {
	return fetchById[Sale](ctx, tx, "sale", id, true)
}

type SaleFilter struct {
	UnitId        *int
	SalespersonId *int
	FromDate      *time.Time
	ToDate        *time.Time
}

func ListSales(ctx context.Context, db *gorm.DB, filter SaleFilter) ([]*Sale, error) {
	var sales []*Sale
	dbCtx := db.WithContext(ctx)
	if filter.UnitId != nil {
		dbCtx = dbCtx.Where("unit_id = ?", *filter.UnitId)
	}
	if filter.SalespersonId != nil {
		dbCtx = dbCtx.Where("salesperson_id = ?", *filter.SalespersonId)
	}
	if filter.FromDate != nil {
		dbCtx = dbCtx.Where("sale_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		dbCtx = dbCtx.Where("sale_date <= ?", utils.EndOfDay(*filter.ToDate))
	}
	if err := dbCtx.Order("sale_date DESC").Order("id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}
