package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type TransactionStatus string

const (
	TransactionStatusActive    TransactionStatus = "active"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

type Category struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	CategoryName string       `gorm:"not null" json:"category_name"`
}

type Store struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	StoreName string       `gorm:"not null" json:"store_name"`
	City      string       `json:"city,omitempty"`
}

type Vehicle struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	ModelName        string       `gorm:"not null;index" json:"model_name"`
	CategoryID       snowflake.ID `gorm:"index" json:"category_id"`
	StoreID          snowflake.ID `gorm:"index" json:"store_id"`
	PricePerDay      float64      `gorm:"not null" json:"price_per_day"`
	CurrentInventory int          `gorm:"not null" json:"current_inventory"`
	TotalInventory   int          `gorm:"not null" json:"total_inventory"`
	LastRentalDate   *time.Time   `json:"last_rental_date,omitempty"`
}

// Utilization returns the rented-out fraction of the vehicle's inventory.
// The second return is false when total inventory is zero and the ratio is
// undefined.
func (v Vehicle) Utilization() (float64, bool) {
	if v.TotalInventory <= 0 {
		return 0, false
	}
	return 1 - float64(v.CurrentInventory)/float64(v.TotalInventory), true
}

type Customer struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name  string       `gorm:"not null" json:"name"`
	Email string       `json:"email,omitempty"`
	Phone string       `json:"phone,omitempty"`
}

type Transaction struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	CustomerID  snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	VehicleID   snowflake.ID      `gorm:"not null;index" json:"vehicle_id"`
	Status      TransactionStatus `gorm:"not null;index" json:"status"`
	RentalDate  time.Time         `gorm:"not null;index" json:"rental_date"`
	ReturnDate  *time.Time        `json:"return_date,omitempty"`
	TotalAmount float64           `gorm:"not null" json:"total_amount"`
}

type PerformanceMetric struct {
	MetricDate      time.Time    `gorm:"primaryKey" json:"metric_date"`
	StoreID         snowflake.ID `gorm:"primaryKey" json:"store_id"`
	Revenue         float64      `gorm:"not null" json:"revenue"`
	UtilizationRate float64      `gorm:"not null" json:"utilization_rate"`
}
