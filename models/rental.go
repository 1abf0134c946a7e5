package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Rental struct {
	ID               int              `gorm:"primary_key" json:"id"`
	UnitId           int              `gorm:"index;not null" json:"unit_id"`
	TenantName       string           `gorm:"size:100;not null" json:"tenant_name"`
	StartDate        time.Time        `gorm:"not null" json:"start_date"`
	EndDate          time.Time        `gorm:"not null" json:"end_date"`
	RentAmount       decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"rent_amount"`
	PaymentFrequency PaymentFrequency `gorm:"size:50;not null" json:"payment_frequency"`
	Notes            string           `gorm:"type:text" json:"notes"`
	UserId           int              `gorm:"index" json:"user_id"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`

	Payments []*RentalPayment `gorm:"foreignKey:RentalId" json:"payments,omitempty"`
}

type NewRental struct {
	UnitId           int              `json:"unit_id" validate:"required,gt=0"`
	TenantName       string           `json:"tenant_name" validate:"required,max=100"`
	StartDate        string           `json:"start_date" validate:"required"`
	EndDate          string           `json:"end_date" validate:"required"`
	RentAmount       decimal.Decimal  `json:"rent_amount" validate:"gt=0"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency" validate:"required,oneof=monthly quarterly annual"`
	Notes            string           `json:"notes"`
}

type RentalPayment struct {
	ID          int                 `gorm:"primary_key" json:"id"`
	RentalId    int                 `gorm:"index;not null" json:"rental_id"`
	PaymentDate time.Time           `gorm:"index;not null" json:"payment_date"`
	Amount      decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status      RentalPaymentStatus `gorm:"size:50;not null;default:due" json:"status"`
	Notes       string              `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRentalPayment struct {
	PaymentDate string              `json:"payment_date" validate:"required"`
	Amount      decimal.Decimal     `json:"amount" validate:"gt=0"`
	Status      RentalPaymentStatus `json:"status" validate:"omitempty,oneof=due paid overdue"`
	Notes       string              `json:"notes"`
}

func GetRental(ctx context.Context, db *gorm.DB, id int) (*Rental, error) {
	return fetchById[Rental](ctx, db, "rental", id, false)
}

func GetRentalForUpdate(ctx context.Context, tx *gorm.DB, id int) (*Rental, error) {
	return fetchById[Rental](ctx, tx, "rental", id, true)
}

func GetRentalWithPayments(ctx context.Context, db *gorm.DB, id int) (*Rental, error) {
	rental, err := GetRental(ctx, db, id)
	if err != nil {
		return nil, err
	}
	payments, err := ListRentalPayments(ctx, db, id)
	if err != nil {
		return nil, err
	}
	rental.Payments = payments
	return rental, nil
}

func ListRentals(ctx context.Context, db *gorm.DB, unitId *int) ([]*Rental, error) {
	var rentals []*Rental
	dbCtx := db.WithContext(ctx)
	if unitId != nil {
		dbCtx = dbCtx.Where("unit_id = ?", *unitId)
	}
	if err := dbCtx.Order("start_date DESC").Order("id DESC").Find(&rentals).Error; err != nil {
		return nil, err
	}
	return rentals, nil
}

func GetRentalPaymentForUpdate(ctx context.Context, tx *gorm.DB, id int) (*RentalPayment, error) {
	return fetchById[RentalPayment](ctx, tx, "rental payment", id, true)
}

func ListRentalPayments(ctx context.Context, db *gorm.DB, rentalId int) ([]*RentalPayment, error) {
	var payments []*RentalPayment
	err := db.WithContext(ctx).Where("rental_id = ?", rentalId).
		Order("payment_date").Order("id").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
