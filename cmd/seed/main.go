// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"bartally/internal/core/id"
	"bartally/internal/core/tenant"
	"bartally/internal/infrastructure/storage/postgres"
	"bartally/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Connect to database
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	// Seed admin user
	adminUserID, err := seedAdminUser(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	// Seed demo data if requested
	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedTenantRegistry(ctx, dbURL, log); err != nil {
			log.Warnw("failed to seed tenant registry", "error", err)
		}
		if err := seedDemoData(ctx, pool, log, adminUserID); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (id.ID, error) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@bartally.io"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	// Check if admin already exists
	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1 AND NOT deletion_mark`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return existingID, nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), fmt.Errorf("check admin exists: %w", err)
	}

	// Hash password
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return id.Nil(), fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	now := time.Now()

	// Create admin user
	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name,
			is_active, is_admin, email_verified, email_verified_at, version
		)
		VALUES ($1, $2, $3, 'System', 'Admin', true, true, true, $4, 1)
	`, userID, adminEmail, string(passwordHash), now)
	if err != nil {
		return id.Nil(), fmt.Errorf("insert admin user: %w", err)
	}

	// Assign admin role
	var adminRoleID id.ID
	err = pool.Pool.QueryRow(ctx,
		`SELECT id FROM roles WHERE code = 'admin'`,
	).Scan(&adminRoleID)
	if err != nil {
		log.Warnw("admin role not found, skipping role assignment", "error", err)
	} else {
		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id, granted_by)
			VALUES ($1, $2, NULL)
			ON CONFLICT (user_id, role_id) DO NOTHING
		`, userID, adminRoleID)
		if err != nil {
			log.Warnw("failed to assign admin role", "error", err)
		}
	}

	log.Infow("admin user created",
		"email", adminEmail,
		"user_id", userID,
	)

	return userID, nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger, adminUserID id.ID) error {
	log.Info("seeding demo data...")

	// 1. Seed Venues
	// The default venue is where new count sheets land unless stated otherwise.
	venues := []struct {
		code      string
		name      string
		vtype     string
		location  string
		isDefault bool
	}{
		{"VN-001", "Main Bar", "bar", "Ground floor", true},
		{"VN-002", "Rooftop Bar", "bar", "Level 7 terrace", false},
		{"VN-003", "Cellar", "storage", "Basement", false},
	}

	var mainVenueID id.ID
	for _, v := range venues {
		vid := id.New()
		commandTag, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_venues (id, code, name, type, location, is_default, version, deletion_mark, attributes)
			VALUES ($1, $2, $3, $4, $5, $6, 1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, vid, v.code, v.name, v.vtype, v.location, v.isDefault)
		if err != nil {
			log.Warnw("failed to seed venue", "name", v.name, "error", err)
			continue
		}

		// If inserted, use new ID. If conflict, we need to fetch existing ID.
		if commandTag.RowsAffected() == 0 {
			err = pool.Pool.QueryRow(ctx, `
				SELECT id FROM cat_venues WHERE code = $1 AND deletion_mark = FALSE
			`, v.code).Scan(&vid)
			if err != nil {
				log.Warnw("failed to fetch existing venue id", "code", v.code, "error", err)
				continue
			}
		}

		if v.isDefault {
			mainVenueID = vid
		}
	}

	if !id.IsNil(adminUserID) && !id.IsNil(mainVenueID) {
		_, venueErr := pool.Pool.Exec(ctx, `
			INSERT INTO user_venues (user_id, venue_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, venue_id) DO NOTHING
		`, adminUserID, mainVenueID)
		if venueErr != nil {
			log.Warnw("failed to link admin user to venue", "error", venueErr)
		}
	}

	// 2. Seed Suppliers
	suppliers := []struct {
		code    string
		name    string
		contact string
		email   string
		phone   string
	}{
		{"SUP-001", "Premier Drinks Co.", "Dana Willis", "orders@premierdrinks.example", "+44 20 7946 0111"},
		{"SUP-002", "Vineyard Direct", "Marco Bianchi", "sales@vineyarddirect.example", "+44 20 7946 0222"},
		{"SUP-003", "City Beverage Wholesale", "Priya Nair", "hello@citybev.example", "+44 20 7946 0333"},
	}

	// Map code -> UUID for item references
	supplierIDs := make(map[string]id.ID)

	for _, s := range suppliers {
		sid := id.New()
		commandTag, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_suppliers (id, code, name, contact_person, email, phone, version, deletion_mark, attributes)
			VALUES ($1, $2, $3, $4, $5, $6, 1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, sid, s.code, s.name, s.contact, s.email, s.phone)
		if err != nil {
			log.Warnw("failed to seed supplier", "name", s.name, "error", err)
			continue
		}

		if commandTag.RowsAffected() == 0 {
			err = pool.Pool.QueryRow(ctx, `
				SELECT id FROM cat_suppliers WHERE code = $1 AND deletion_mark = FALSE
			`, s.code).Scan(&sid)
			if err != nil {
				log.Warnw("failed to fetch existing supplier id", "code", s.code, "error", err)
				continue
			}
		}

		supplierIDs[s.code] = sid
	}

	// 3. Seed Items
	// One entry per counting category so every scheme shows up in demo counts.
	items := []struct {
		code        string
		name        string
		category    string
		perCase     int64
		containerML string
		servingML   string
		unitCost    string
		sku         string
		barcode     string
		supplier    string
		aliases     []string
	}{
		{"ITM-001", "Absolut Vodka 70cl", "spirits", 1, "700", "40", "18.50", "ABS-VOD-70", "7312040017072", "SUP-001", []string{"vodka", "absolut"}},
		{"ITM-002", "Tanqueray Gin 70cl", "spirits", 1, "700", "40", "21.00", "TNQ-GIN-70", "5000291025402", "SUP-001", []string{"gin", "tanqueray"}},
		{"ITM-003", "Jameson Whiskey 70cl", "spirits", 1, "700", "40", "23.75", "JAM-WHI-70", "5011007003227", "SUP-001", []string{"whiskey", "jameson"}},
		{"ITM-004", "House Merlot 75cl", "wine", 1, "750", "150", "9.80", "HSE-MER-75", "", "SUP-002", []string{"merlot", "house red"}},
		{"ITM-005", "Prosecco DOC 75cl", "wine", 1, "750", "125", "11.20", "PRS-DOC-75", "", "SUP-002", []string{"prosecco", "fizz"}},
		{"ITM-006", "Lager Keg 50L", "draft", 1, "50000", "568", "144.00", "LGR-KEG-50", "", "SUP-003", []string{"lager", "house lager"}},
		{"ITM-007", "Pale Ale Keg 30L", "draft", 1, "30000", "568", "126.50", "PAL-KEG-30", "", "SUP-003", []string{"pale ale", "ipa"}},
		{"ITM-008", "Pilsner 33cl Case", "bottled", 24, "330", "330", "28.80", "PIL-BTL-24", "8714800023559", "SUP-003", []string{"pilsner"}},
		{"ITM-009", "Orange Juice 1L Case", "juice", 12, "1000", "200", "15.60", "OJ-1L-12", "", "SUP-003", []string{"orange juice", "oj"}},
		{"ITM-010", "Grenadine Syrup 70cl", "syrup", 1, "700", "10", "6.90", "GRN-SYR-70", "", "SUP-001", []string{"grenadine"}},
		{"ITM-011", "Cola 33cl Case", "soft_drink", 24, "330", "330", "19.20", "COL-BTL-24", "5449000000996", "SUP-003", []string{"cola", "coke"}},
		{"ITM-012", "Sparkling Water 75cl Case", "mineral", 12, "750", "750", "13.20", "SPW-BTL-12", "", "SUP-003", []string{"sparkling water"}},
	}

	for _, it := range items {
		itemID := id.New()

		var supplierID interface{}
		if sid, ok := supplierIDs[it.supplier]; ok {
			supplierID = sid
		}

		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_items (
				id, code, name, category, units_per_container, container_ml, serving_ml,
				unit_cost, sku, barcode, supplier_id, aliases,
				version, deletion_mark, attributes
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, itemID, it.code, it.name, it.category, it.perCase,
			decimal.RequireFromString(it.containerML),
			decimal.RequireFromString(it.servingML),
			decimal.RequireFromString(it.unitCost),
			nullIfEmpty(it.sku), nullIfEmpty(it.barcode), supplierID, it.aliases)

		if err != nil {
			log.Warnw("failed to seed item", "name", it.name, "error", err)
		}
	}

	// 4. Seed Alert Rules
	// Negative variance means shortage; rules fire on losses, not surpluses.
	rules := []struct {
		name        string
		expression  string
		severity    string
		description string
	}{
		{
			"Spirits shrinkage over 5%",
			`category == "spirits" && variance_pct < -5.0`,
			"critical",
			"Spirit line short by more than five percent of expected stock.",
		},
		{
			"Line shortage above 50",
			`variance_value < -50.0`,
			"warning",
			"Any line where the shortage is worth more than 50 in venue currency.",
		},
	}

	for _, r := range rules {
		var existing id.ID
		err := pool.Pool.QueryRow(ctx, `
			SELECT id FROM alert_rules WHERE name = $1 AND deletion_mark = FALSE
		`, r.name).Scan(&existing)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Warnw("failed to check alert rule", "name", r.name, "error", err)
			continue
		}

		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO alert_rules (id, name, expression, severity, description, version, deletion_mark, attributes)
			VALUES ($1, $2, $3, $4, $5, 1, false, '{}')
		`, id.New(), r.name, r.expression, r.severity, r.description)
		if err != nil {
			log.Warnw("failed to seed alert rule", "name", r.name, "error", err)
		}
	}

	log.Info("demo data seeded successfully")
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func seedTenantRegistry(ctx context.Context, dbURL string, log *logger.Logger) error {
	metaDSN := os.Getenv("META_DATABASE_URL")
	if metaDSN == "" {
		log.Warn("META_DATABASE_URL is not set; skipping tenant registry seed")
		return nil
	}

	metaPool, err := pgxpool.New(ctx, metaDSN)
	if err != nil {
		return fmt.Errorf("connect meta database: %w", err)
	}
	defer metaPool.Close()

	if err := metaPool.Ping(ctx); err != nil {
		return fmt.Errorf("ping meta database: %w", err)
	}

	tenantSlug := os.Getenv("TENANT_SLUG")
	if tenantSlug == "" {
		tenantSlug = "demo"
	}

	tenantName := os.Getenv("TENANT_NAME")
	if tenantName == "" {
		tenantName = "Demo Tenant"
	}

	tenantPlan := os.Getenv("TENANT_PLAN")
	if tenantPlan == "" {
		tenantPlan = string(tenant.PlanStandard)
	}

	dbConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return fmt.Errorf("parse tenant database url: %w", err)
	}

	dbHost := dbConfig.ConnConfig.Host
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := int(dbConfig.ConnConfig.Port)
	if dbPort == 0 {
		dbPort = 5432
	}

	dbName := dbConfig.ConnConfig.Database
	if dbName == "" {
		dbName = "bartally"
	}

	var existingID string
	err = metaPool.QueryRow(ctx, `SELECT id FROM tenants WHERE slug = $1`, tenantSlug).Scan(&existingID)
	if err == nil {
		log.Infow("tenant already exists in registry", "slug", tenantSlug, "tenant_id", existingID)
		return nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check tenant exists: %w", err)
	}

	registry := tenant.NewPostgresRegistry(metaPool)
	newTenant := &tenant.Tenant{
		Slug:        tenantSlug,
		DisplayName: tenantName,
		DBName:      dbName,
		DBHost:      dbHost,
		DBPort:      dbPort,
		Status:      tenant.StatusActive,
		Plan:        tenant.Plan(tenantPlan),
		Settings:    map[string]any{},
	}

	if err := registry.Create(ctx, newTenant); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}

	log.Infow("tenant seeded in registry", "slug", tenantSlug, "tenant_id", newTenant.ID)
	return nil
}
