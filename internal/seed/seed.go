package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
	"gorm.io/gorm"
)

// EnsureDemoData loads a small fleet fixture for local development. It is a
// no-op when the vehicles table already has rows, so restarting the service
// never duplicates the fixture.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&fleetdomain.Vehicle{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		day := func(offset int) time.Time { return now.AddDate(0, 0, offset) }
		dayPtr := func(offset int) *time.Time {
			t := day(offset)
			return &t
		}

		economy := fleetdomain.Category{ID: node.Generate(), CategoryName: "Economy"}
		suv := fleetdomain.Category{ID: node.Generate(), CategoryName: "SUV"}
		if err := tx.Create([]*fleetdomain.Category{&economy, &suv}).Error; err != nil {
			return err
		}

		downtown := fleetdomain.Store{ID: node.Generate(), StoreName: "Downtown", City: "Austin"}
		airport := fleetdomain.Store{ID: node.Generate(), StoreName: "Airport", City: "Austin"}
		if err := tx.Create([]*fleetdomain.Store{&downtown, &airport}).Error; err != nil {
			return err
		}

		corolla := fleetdomain.Vehicle{
			ID: node.Generate(), ModelName: "Toyota Corolla",
			CategoryID: economy.ID, StoreID: downtown.ID,
			PricePerDay: 45, CurrentInventory: 2, TotalInventory: 8,
			LastRentalDate: dayPtr(-1),
		}
		civic := fleetdomain.Vehicle{
			ID: node.Generate(), ModelName: "Honda Civic",
			CategoryID: economy.ID, StoreID: airport.ID,
			PricePerDay: 50, CurrentInventory: 5, TotalInventory: 6,
			LastRentalDate: dayPtr(-3),
		}
		rav4 := fleetdomain.Vehicle{
			ID: node.Generate(), ModelName: "Toyota RAV4",
			CategoryID: suv.ID, StoreID: downtown.ID,
			PricePerDay: 80, CurrentInventory: 1, TotalInventory: 4,
			LastRentalDate: dayPtr(-2),
		}
		// Idle long enough to land on the maintenance list.
		explorer := fleetdomain.Vehicle{
			ID: node.Generate(), ModelName: "Ford Explorer",
			CategoryID: suv.ID, StoreID: airport.ID,
			PricePerDay: 85, CurrentInventory: 3, TotalInventory: 3,
			LastRentalDate: dayPtr(-45),
		}
		// Never rented at all.
		tucson := fleetdomain.Vehicle{
			ID: node.Generate(), ModelName: "Hyundai Tucson",
			CategoryID: suv.ID, StoreID: downtown.ID,
			PricePerDay: 70, CurrentInventory: 2, TotalInventory: 2,
		}
		vehicles := []*fleetdomain.Vehicle{&corolla, &civic, &rav4, &explorer, &tucson}
		if err := tx.Create(vehicles).Error; err != nil {
			return err
		}

		alice := fleetdomain.Customer{ID: node.Generate(), Name: "Alice Nguyen", Email: "alice@example.com", Phone: "512-555-0101"}
		bruno := fleetdomain.Customer{ID: node.Generate(), Name: "Bruno Silva", Email: "bruno@example.com", Phone: "512-555-0102"}
		chloe := fleetdomain.Customer{ID: node.Generate(), Name: "Chloe Park", Email: "chloe@example.com", Phone: "512-555-0103"}
		if err := tx.Create([]*fleetdomain.Customer{&alice, &bruno, &chloe}).Error; err != nil {
			return err
		}

		txn := func(customer, vehicle snowflake.ID, status fleetdomain.TransactionStatus, start, end int, amount float64) *fleetdomain.Transaction {
			t := &fleetdomain.Transaction{
				ID:          node.Generate(),
				CustomerID:  customer,
				VehicleID:   vehicle,
				Status:      status,
				RentalDate:  day(start),
				TotalAmount: amount,
			}
			if status != fleetdomain.TransactionStatusActive {
				t.ReturnDate = dayPtr(end)
			}
			return t
		}

		transactions := []*fleetdomain.Transaction{
			// Alice rents often; her volume trips the anomaly rule.
			txn(alice.ID, corolla.ID, fleetdomain.TransactionStatusCompleted, -20, -18, 90),
			txn(alice.ID, civic.ID, fleetdomain.TransactionStatusCompleted, -14, -13, 50),
			txn(alice.ID, rav4.ID, fleetdomain.TransactionStatusCompleted, -8, -5, 240),
			txn(alice.ID, corolla.ID, fleetdomain.TransactionStatusActive, -1, 0, 135),
			// Bruno's single big rental trips the amount rule.
			txn(bruno.ID, rav4.ID, fleetdomain.TransactionStatusCompleted, -10, -3, 640),
			// Chloe is unremarkable.
			txn(chloe.ID, civic.ID, fleetdomain.TransactionStatusCompleted, -6, -4, 100),
			txn(chloe.ID, explorer.ID, fleetdomain.TransactionStatusCancelled, -2, 0, 0),
		}
		return tx.Create(transactions).Error
	})
}
