package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// seed manages the schema and loads a small demo data set: two events with
// catalogs, a referral pair of users and a few discount codes. Rows that
// exist are left alone.
//
//	seed            migrate up, then load the demo data
//	seed -down      roll every migration back
//	seed -to N      move the schema to version N, no data
func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.NewLogger("seed")
	defer log.Close()

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to database: %v", err))
	}

	runner := migrations.NewRunner(sqldb, cfg.Migrations, log)
	err = migrate(runner, opts)
	_ = runner.Close()
	if err != nil {
		log.Fatal("MIGRATION", err.Error())
	}
	if opts.down || opts.hasTarget {
		return
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	if err := seedData(ctx, db, log, time.Now().UTC()); err != nil {
		log.Error("SEED", err.Error())
		os.Exit(1)
	}
	log.Info("SEED", "Done")
}

type seedOptions struct {
	down      bool
	hasTarget bool
	target    uint
}

func parseFlags(args []string) (seedOptions, error) {
	var opts seedOptions
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&opts.down, "down", false, "roll back all migrations")
	to := fs.Int("to", -1, "migrate to this schema version and skip seeding")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if *to >= 0 {
		opts.hasTarget, opts.target = true, uint(*to)
	}
	if opts.down && opts.hasTarget {
		return opts, errors.New("-down and -to cannot be combined")
	}
	return opts, nil
}

type schemaMigrator interface {
	RunMigrations() error
	MigrateDown() error
	MigrateTo(version uint) error
}

func migrate(m schemaMigrator, opts seedOptions) error {
	switch {
	case opts.down:
		return m.MigrateDown()
	case opts.hasTarget:
		return m.MigrateTo(opts.target)
	default:
		return m.RunMigrations()
	}
}

func seedData(ctx context.Context, db *bun.DB, log *logger.Logger, now time.Time) error {
	day := 24 * time.Hour

	events := []models.Event{
		{ID: "evt-devfest", Name: "DevFest", Location: "Colombo", Date: now.Add(30 * day), OrganizerID: "org-1", CreatedAt: now},
		{ID: "evt-meetup", Name: "Go Meetup", Location: "Kandy", Date: now.Add(5 * day), OrganizerID: "org-1", CreatedAt: now},
	}
	catalog := []models.EventTicketType{
		{EventID: "evt-devfest", Name: string(models.TicketTypeEarlyBird), Price: 25, Quantity: 100},
		{EventID: "evt-devfest", Name: string(models.TicketTypeRegular), Price: 40, Quantity: 400},
		{EventID: "evt-devfest", Name: string(models.TicketTypeVIP), Price: 120, Quantity: 20},
		{EventID: "evt-meetup", Name: string(models.TicketTypeRegular), Price: 10, Quantity: 80},
	}
	users := []models.User{
		{ID: "user-ana", Name: "Ana", Email: "ana@example.com", Role: "user", CreatedAt: now},
		{ID: "user-ben", Name: "Ben", Email: "ben@example.com", Role: "user", ReferredBy: "user-ana", CreatedAt: now},
		{ID: "user-vic", Name: "Vic", Email: "vic@example.com", Role: "volunteer", CreatedAt: now},
		{ID: "org-1", Name: "Olu", Email: "olu@example.com", Role: "organizer", CreatedAt: now},
	}
	discounts := []models.Discount{
		{ID: "disc-early20", Code: "EARLY20", CodeKey: models.NormalizeCode("EARLY20"), EventID: "evt-devfest",
			DiscountType: models.DiscountTypePercentage, Value: 20, MaxUsage: 50,
			StartDate: now.Add(-day), EndDate: now.Add(14 * day), ExpiryDate: now.Add(14 * day), IsActive: true, CreatedAt: now},
		{ID: "disc-five", Code: "FIVEOFF", CodeKey: models.NormalizeCode("FIVEOFF"), EventID: "evt-meetup",
			DiscountType: models.DiscountTypeFlat, Value: 5, MaxUsage: 0,
			StartDate: now.Add(-day), EndDate: now.Add(5 * day), ExpiryDate: now.Add(5 * day), IsActive: true, CreatedAt: now},
	}

	steps := []struct {
		table    string
		model    interface{}
		conflict string
	}{
		{"events", &events, "CONFLICT (id) DO NOTHING"},
		{"event_ticket_types", &catalog, "CONFLICT (event_id, name) DO NOTHING"},
		{"users", &users, "CONFLICT (id) DO NOTHING"},
		{"discounts", &discounts, "CONFLICT (id) DO NOTHING"},
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, step := range steps {
			res, err := tx.NewInsert().Model(step.model).On(step.conflict).Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed %s: %w", step.table, err)
			}
			n, _ := res.RowsAffected()
			log.LogDatabase("SEED", step.table, fmt.Sprintf("%d new rows", n))
		}
		return nil
	})
}
