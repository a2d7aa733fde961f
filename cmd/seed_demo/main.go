package main

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/ventamovil/posync/internal/config"
	"github.com/ventamovil/posync/internal/database"
	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/utils"
)

func main() {
	fmt.Println("🌱 posync Demo Data Seeder")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
	err = db.AutoMigrate(
		&models.SellerAccount{},
		&models.OfflineSaleRecord{},
		&models.SaleLineItem{},
		&models.SyncMetadata{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")

	// Check if data already exists
	var saleCount int64
	db.Model(&models.OfflineSaleRecord{}).Count(&saleCount)
	if saleCount > 0 {
		fmt.Printf("⚠️  Database already has %d offline sales. Clear it first? (y/N): ", saleCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}

		fmt.Println("🗑️  Clearing existing data...")
		db.Exec("TRUNCATE TABLE sale_line_items CASCADE")
		db.Exec("TRUNCATE TABLE offline_sale_records CASCADE")
		db.Exec("TRUNCATE TABLE sync_metadata CASCADE")
		db.Exec("TRUNCATE TABLE seller_accounts CASCADE")
		fmt.Println("✅ Data cleared")
	}

	fmt.Println("📦 Creating demo data...")

	// 1. Seller accounts
	fmt.Println("👤 Creating seller accounts...")
	sellers := []struct {
		username string
		password string
		name     string
		role     string
	}{
		{"ana", "ana12345", "Ana Torres", models.RoleSeller},
		{"luis", "luis12345", "Luis Mendoza", models.RoleSeller},
		{"martha", "martha12345", "Martha Díaz", models.RoleReviewer},
	}

	accounts := make(map[string]models.SellerAccount, len(sellers))
	for _, s := range sellers {
		hash, err := utils.HashPassword(s.password)
		if err != nil {
			log.Fatalf("❌ Failed to hash password: %v", err)
		}
		acc := models.SellerAccount{
			ID:       uuid.NewString(),
			Username: s.username,
			Password: hash,
			Name:     s.name,
			Role:     s.role,
			IsActive: true,
		}
		if err := db.Create(&acc).Error; err != nil {
			log.Printf("⚠️  Failed to create seller %s: %v", s.username, err)
			continue
		}
		accounts[s.username] = acc
		fmt.Printf("   ✓ Created seller: %s (%s)\n", s.name, s.role)
	}

	// 2. Offline sales awaiting sync
	fmt.Println("🧾 Creating pending offline sales...")
	demoSales := []struct {
		seller string
		items  []models.SaleLineItem
	}{
		{"ana", []models.SaleLineItem{
			{ProductID: "F-001", UnitCode: "PZ", UnitFactor: 1, Qty: 2, UnitPrice: 10},
			{ProductID: "F-014", UnitCode: "CJ", UnitFactor: 12, Qty: 1, UnitPrice: 95},
		}},
		{"ana", []models.SaleLineItem{
			{ProductID: "B-203", UnitCode: "PZ", UnitFactor: 1, Qty: 5, UnitPrice: 18.5, Discount: 4},
		}},
		{"luis", []models.SaleLineItem{
			{ProductID: "F-001", UnitCode: "PZ", UnitFactor: 1, Qty: 3, UnitPrice: 10},
		}},
	}

	for _, ds := range demoSales {
		acc, ok := accounts[ds.seller]
		if !ok {
			continue
		}
		rec := models.OfflineSaleRecord{
			ID:        uuid.NewString(),
			SellerID:  acc.ID,
			Status:    models.SaleStatusPendingSync,
			LineItems: ds.items,
		}
		for i := range rec.LineItems {
			rec.LineItems[i].SaleID = rec.ID
			rec.LineItems[i].Recompute()
		}
		rec.RecomputeTotals(cfg.TaxRate)
		if err := rec.Validate(); err != nil {
			log.Fatalf("❌ Demo sale invalid: %v", err)
		}
		if err := db.Create(&rec).Error; err != nil {
			log.Printf("⚠️  Failed to create sale %s: %v", rec.ID, err)
			continue
		}
		fmt.Printf("   ✓ Created sale %s for %s (total %.2f)\n", rec.ID, ds.seller, rec.GrandTotal)
	}

	fmt.Println()
	fmt.Println("✅ Demo data ready. Start the agent and log in as ana/ana12345.")
}
