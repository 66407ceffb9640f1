package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"inventory/models"
	"inventory/pkg/ledger"
	"inventory/pkg/policy"
	"inventory/pkg/reconcile"
	"inventory/pkg/store"
)

var (
	db     *gorm.DB // nil when running on the memory store
	st     *store.Store
	engine *reconcile.Engine
)

// Status ids seeded into the statuses table.
const (
	statusWorking   = 1
	statusForRepair = 2
	statusDisposed  = 3
)

var seedStatuses = []models.Status{
	{ID: statusWorking, Label: "Working"},
	{ID: statusForRepair, Label: "For Repair"},
	{ID: statusDisposed, Label: "Disposed"},
}

// openDB connects to Postgres. The reconcile path runs several writes per
// request without a surrounding transaction, so gorm's implicit per-write
// transaction is switched off as well.
func openDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_DSN is not set; the postgres store requires a DSN")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect postgres database")
	}
	return gdb, nil
}

// migrateDB creates or updates every table. Tables are migrated one by one so
// a failure on one (e.g. missing permissions) doesn't block the others.
func migrateDB(gdb *gorm.DB) {
	tables := []struct {
		name  string
		model any
	}{
		{"user_types", &models.UserType{}},
		{"users", &models.User{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"statuses", &models.Status{}},
		{"hardware", &models.Hardware{}},
		{"hardware_instances", &models.HardwareInstance{}},
		{"software", &models.Software{}},
		{"software_instances", &models.SoftwareInstance{}},
		{"subscriptions", &models.Subscription{}},
		{"assignment_logs", &models.AssignmentLog{}},
	}
	for _, t := range tables {
		if err := gdb.AutoMigrate(t.model); err != nil {
			logger.WithError(err).WithField("table", t.name).Warn("migration warning")
		}
	}
	for _, fk := range []struct{ table, column, ref string }{
		{"hardware_instances", "hardware_id", "hardware"},
		{"software_instances", "software_id", "software"},
		{"subscriptions", "software_id", "software"},
	} {
		if err := ensureCascadeFK(gdb, fk.table, fk.column, fk.ref); err != nil {
			logger.WithError(err).WithField("table", fk.table).Warn("ensuring cascade FK failed")
		}
	}
}

// ensureCascadeFK adds an ON DELETE CASCADE foreign key from table.column to
// ref(id) if none exists yet (tables created before the constraint was
// declared lack it).
func ensureCascadeFK(gdb *gorm.DB, table, column, ref string) error {
	if err := gdb.Exec(fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)`, table, column, table, column)).Error; err != nil {
		return err
	}
	type cnt struct{ N int }
	var c cnt
	fkCheckSQL := `SELECT count(*) AS n
		FROM pg_constraint ct
		JOIN pg_class rel ON rel.oid = ct.conrelid
		WHERE rel.relname = ? AND ct.contype = 'f'
		  AND pg_get_constraintdef(ct.oid) ILIKE ? AND pg_get_constraintdef(ct.oid) ILIKE ?`
	if err := gdb.Raw(fkCheckSQL, table, "%"+column+"%", "%REFERENCES "+ref+"(%").Scan(&c).Error; err != nil {
		return err
	}
	if c.N > 0 {
		return nil
	}
	return gdb.Exec(fmt.Sprintf(`ALTER TABLE %s
		ADD CONSTRAINT fk_%s_%s
		FOREIGN KEY (%s) REFERENCES %s(id)
		ON UPDATE CASCADE ON DELETE CASCADE`, table, table, ref, column, ref)).Error
}

// seedStore inserts the fixed user types and statuses and, when rootEmail is
// set, a root admin with that address. It is idempotent.
func seedStore(ctx context.Context, s *store.Store, rootEmail string) error {
	for _, r := range policy.Roles() {
		ut := models.UserType{ID: uint(r), Label: r.Label()}
		if err := ensureRow(ctx, s.UserTypes, ut.ID, &ut); err != nil {
			return err
		}
	}
	for _, status := range seedStatuses {
		status := status
		if err := ensureRow(ctx, s.Statuses, status.ID, &status); err != nil {
			return err
		}
	}
	if rootEmail == "" {
		return nil
	}
	if _, err := store.First(ctx, s.Users, "email", rootEmail); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	root := &models.User{Email: rootEmail, UserTypeID: uint(policy.RootAdmin)}
	if err := s.Users.Create(ctx, root); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"email": rootEmail, "id": root.ID}).Info("seeded root admin")
	return nil
}

func ensureRow[T any](ctx context.Context, r store.Records[T], id uint, row *T) error {
	if _, err := r.Get(ctx, id); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return r.Create(ctx, row)
}

// initStore opens the configured backend, migrates and seeds it and builds
// the reconcile engine on top.
func initStore(ctx context.Context, c appConfig) error {
	switch c.Store {
	case "memory":
		db = nil
		st = store.NewMemory()
	case "postgres", "":
		gdb, err := openDB(c.DBDSN)
		if err != nil {
			return err
		}
		if c.AutoMigrate {
			migrateDB(gdb)
		}
		s, err := store.NewGorm(gdb)
		if err != nil {
			return err
		}
		db, st = gdb, s
	default:
		return errors.Errorf("unknown store %q (want postgres or memory)", c.Store)
	}
	if err := seedStore(ctx, st, c.RootEmail); err != nil {
		return errors.Wrap(err, "seed")
	}
	led := ledger.New(st.AssignmentLogs)
	led.OnRecord = countAssignment
	engine = reconcile.New(st, led, logger)
	return nil
}
