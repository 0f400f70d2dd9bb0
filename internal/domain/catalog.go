package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Hub is a collection/distribution point a batch is delivered through.
type Hub struct {
	ID        string
	Name      string
	Location  string
	CreatedAt time.Time
}

type Farmer struct {
	ID        string
	Name      string
	Phone     string
	Village   string
	District  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is produce a farmer grows. BasePrice is the farmer's reference
// price per Unit; per-batch prices live on BatchProduct.
type Product struct {
	ID        string
	FarmerID  string
	Name      string
	Category  string
	Unit      string
	BasePrice decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProductFilter struct {
	FarmerID        string
	IncludeInactive bool
}

// DashboardStats backs the admin dashboard stat cards.
type DashboardStats struct {
	ActiveFarmers        int
	ActiveProducts       int
	OpenBatches          int
	Orders               int
	CommitmentsCollected decimal.Decimal
	SettlementsCollected decimal.Decimal
}
