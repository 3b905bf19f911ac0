package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Fixed IDs keep the seeder idempotent and make the demo cart easy to poke
// at with curl.
const (
	variantKopi     = "11111111-1111-1111-1111-111111111111"
	variantGula     = "22222222-2222-2222-2222-222222222222"
	variantTeh      = "33333333-3333-3333-3333-333333333333"
	productKopi     = "aaaaaaaa-1111-1111-1111-111111111111"
	productGula     = "aaaaaaaa-2222-2222-2222-222222222222"
	productTeh      = "aaaaaaaa-3333-3333-3333-333333333333"
	demoCart        = "99999999-9999-9999-9999-999999999999"
	demoCustomer    = "88888888-8888-8888-8888-888888888888"
	rulePWPTeh      = "bbbbbbbb-1111-1111-1111-111111111111"
	ruleMemberPromo = "bbbbbbbb-2222-2222-2222-222222222222"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedVariants(db)
	seedPriceTiers(db)
	seedPromotionRules(db)
	seedDemoCart(db)

	log.Println("Seeding completed successfully!")
}

func seedVariants(db *sql.DB) {
	variants := []struct {
		ID        string
		ProductID string
		Price     int64
		Stock     int
	}{
		{variantKopi, productKopi, 45000, 200},
		{variantGula, productGula, 15000, 500},
		{variantTeh, productTeh, 25000, 80},
	}

	fmt.Println("Seeding Variants...")
	for _, v := range variants {
		_, err := db.Exec(`
			INSERT INTO product_variants (id, product_id, price, stock)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				price = EXCLUDED.price,
				stock = EXCLUDED.stock;
		`, v.ID, v.ProductID, v.Price, v.Stock)
		if err != nil {
			log.Printf("Failed to seed variant %s: %v", v.ID, err)
		}
	}
}

func seedPriceTiers(db *sql.DB) {
	tiers := []struct {
		VariantID string
		Slug      string
		MinQty    int
		MaxQty    sql.NullInt32
		Amount    int64
	}{
		{variantKopi, "base", 1, sql.NullInt32{Int32: 9, Valid: true}, 45000},
		{variantKopi, "bulk-10", 10, sql.NullInt32{Int32: 49, Valid: true}, 40000},
		{variantKopi, "bulk-50", 50, sql.NullInt32{}, 36000},
		{variantGula, "base", 1, sql.NullInt32{Int32: 19, Valid: true}, 15000},
		{variantGula, "bulk-20", 20, sql.NullInt32{}, 13000},
	}

	fmt.Println("Seeding Price Tiers...")
	for _, t := range tiers {
		_, err := db.Exec(`
			INSERT INTO price_tiers (variant_id, slug, min_qty, max_qty, amount)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (variant_id, slug) DO UPDATE SET
				min_qty = EXCLUDED.min_qty,
				max_qty = EXCLUDED.max_qty,
				amount = EXCLUDED.amount;
		`, t.VariantID, t.Slug, t.MinQty, t.MaxQty, t.Amount)
		if err != nil {
			log.Printf("Failed to seed tier %s/%s: %v", t.VariantID, t.Slug, err)
		}
	}
}

func seedPromotionRules(db *sql.DB) {
	fmt.Println("Seeding Promotion Rules...")

	_, err := db.Exec(`
		INSERT INTO promotion_rules (id, kind, name, status, trigger_kind, trigger_cart_value,
			reward_kind, reward_percent_bps, reward_variant_id, reward_title)
		VALUES ($1, 'pwp', 'Teh gratis di atas 100rb', 'active', 'cart_value', 100000,
			'percent', 10000, $2, 'Teh Celup Premium')
		ON CONFLICT (id) DO UPDATE SET
			trigger_cart_value = EXCLUDED.trigger_cart_value,
			reward_percent_bps = EXCLUDED.reward_percent_bps;
	`, rulePWPTeh, variantTeh)
	if err != nil {
		log.Printf("Failed to seed pwp rule: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO promotion_rules (id, kind, name, status, reward_kind, reward_value, min_purchase)
		VALUES ($1, 'membership', 'Diskon anggota 10rb', 'active', 'fixed', 10000, 50000)
		ON CONFLICT (id) DO UPDATE SET
			reward_value = EXCLUDED.reward_value,
			min_purchase = EXCLUDED.min_purchase;
	`, ruleMemberPromo)
	if err != nil {
		log.Printf("Failed to seed membership rule: %v", err)
	}

	coupons := []struct {
		Code       string
		RewardKind string
		Value      int64
		PercentBps int
		MinSpend   int64
	}{
		{"HEMAT10", "percent", 0, 1000, 50000},
		{"POTONG5RB", "fixed", 5000, 0, 0},
	}
	for _, c := range coupons {
		_, err := db.Exec(`
			INSERT INTO promotion_rules (kind, name, code, status, reward_kind, reward_value,
				reward_percent_bps, min_purchase, ends_at)
			VALUES ('coupon', $1, $1, 'active', $2, $3, $4, $5, NOW() + INTERVAL '1 year')
			ON CONFLICT (code) WHERE kind = 'coupon' AND code <> '' DO UPDATE SET
				reward_value = EXCLUDED.reward_value,
				reward_percent_bps = EXCLUDED.reward_percent_bps,
				ends_at = EXCLUDED.ends_at;
		`, c.Code, c.RewardKind, c.Value, c.PercentBps, c.MinSpend)
		if err != nil {
			log.Printf("Failed to seed coupon %s: %v", c.Code, err)
		}
	}
}

func seedDemoCart(db *sql.DB) {
	fmt.Println("Seeding Demo Cart...")

	_, err := db.Exec(`
		INSERT INTO carts (id, customer_id, currency)
		VALUES ($1, $2, 'IDR')
		ON CONFLICT (id) DO NOTHING;
	`, demoCart, demoCustomer)
	if err != nil {
		log.Printf("Failed to seed cart: %v", err)
		return
	}

	items := []struct {
		VariantID string
		ProductID string
		Title     string
		Qty       int
		UnitPrice int64
	}{
		{variantKopi, productKopi, "Kopi Arabika 250g", 12, 40000},
		{variantGula, productGula, "Gula Aren 500g", 4, 15000},
	}
	for _, it := range items {
		_, err := db.Exec(`
			INSERT INTO cart_items (cart_id, product_id, variant_id, title, qty, unit_price)
			SELECT $1, $2, $3, $4, $5, $6
			WHERE NOT EXISTS (
				SELECT 1 FROM cart_items WHERE cart_id = $1 AND variant_id = $3
			);
		`, demoCart, it.ProductID, it.VariantID, it.Title, it.Qty, it.UnitPrice)
		if err != nil {
			log.Printf("Failed to seed cart item %s: %v", it.Title, err)
		}
	}
}
