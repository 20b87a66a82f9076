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
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	metricsdomain "github.com/smallbiznis/tally/internal/businessmetrics/domain"
	"github.com/smallbiznis/tally/internal/claimsync"
	expensedomain "github.com/smallbiznis/tally/internal/expense/domain"
	onboardingdomain "github.com/smallbiznis/tally/internal/onboarding/domain"
	orderdomain "github.com/smallbiznis/tally/internal/order/domain"
	orgdomain "github.com/smallbiznis/tally/internal/organization/domain"
	settingsdomain "github.com/smallbiznis/tally/internal/settings/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

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

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&authdomain.User{},
		&onboardingdomain.PersonalAccount{},
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&orgdomain.MemberPermission{},
		&orgdomain.JoinRequest{},
		&settingsdomain.Settings{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&orderdomain.AdditionalFee{},
		&expensedomain.Expense{},
		&expensedomain.ExpenseItem{},
		&metricsdomain.BusinessMetrics{},
		&auditdomain.AuditLog{},
		&claimsync.Job{},
	}
}

// AutoMigrate creates the schema on databases without SQL migrations
// (sqlite and mysql).
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(Models()...)
}
