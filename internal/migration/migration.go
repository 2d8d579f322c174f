package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	activitydomain "github.com/srithedesigner/credmatrix-backend/internal/activity/domain"
	auditdomain "github.com/srithedesigner/credmatrix-backend/internal/audit/domain"
	authdomain "github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	otpdomain "github.com/srithedesigner/credmatrix-backend/internal/otp/domain"
	paymentdomain "github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
	reportdomain "github.com/srithedesigner/credmatrix-backend/internal/report/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table in creation order. Dialects other than postgres
// get their schema from these through AutoMigrate.
func Models() []any {
	return []any{
		&entitydomain.Entity{},
		&authdomain.User{},
		&authdomain.Session{},
		&otpdomain.OTP{},
		&reportdomain.Report{},
		&documentdomain.Document{},
		&activitydomain.Activity{},
		&ledgerdomain.Transaction{},
		&paymentdomain.Payment{},
		&auditdomain.AuditLog{},
	}
}

// Apply brings the schema up to date: embedded SQL migrations on postgres,
// AutoMigrate elsewhere.
func Apply(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
