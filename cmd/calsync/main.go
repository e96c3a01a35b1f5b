// Command calsync checks every rental unit's external calendar feed and
// reports how many blocked ranges each one yields. It writes nothing.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"property_listings/internal/adapters/auth"
	"property_listings/internal/adapters/feed"
	"property_listings/internal/adapters/observability"
	"property_listings/internal/app"
	"property_listings/internal/shared"
	mysqlrepo "property_listings/internal/storage/mysql"
)

type unitFeed struct {
	propertyID string
	unitIndex  int
	unitKey    string
	url        string
}

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if cfg.StoreBackend != "mysql" {
		log.Fatal().Str("store", cfg.StoreBackend).Msg("calsync needs the mysql store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Int("workers", cfg.CalSyncWorkers).Msg("calsync starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	fetcher := feed.New(feed.Options{Timeout: cfg.ICalTimeout(), RPS: cfg.ICalRPS, MaxBytes: cfg.ICalMaxBytes})
	cal := app.NewCalendarService(repo, auth.RolePolicy{}, fetcher)

	docs, err := repo.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list properties failed")
	}
	var feeds []unitFeed
	for _, d := range docs {
		if d.Archived {
			continue
		}
		for i, u := range d.Draft.RentalUnits {
			if u.ICalURL != "" {
				feeds = append(feeds, unitFeed{propertyID: d.ID, unitIndex: i, unitKey: u.Key, url: u.ICalURL})
			}
		}
	}

	sem := semaphore.NewWeighted(int64(cfg.CalSyncWorkers))
	var wg sync.WaitGroup
	var failed int64

	for _, f := range feeds {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("calsync interrupted")
			break
		}

		wg.Add(1)
		go func(f unitFeed) {
			defer wg.Done()
			defer sem.Release(1)

			ranges, err := cal.FeedRanges(ctx, f.url)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				log.Warn().Err(err).Str("id", f.propertyID).Int("unit", f.unitIndex).Str("error_class", observability.ErrorClass(err)).Msg("feed check failed")
				return
			}
			ev := log.Info().Str("id", f.propertyID).Int("unit", f.unitIndex).Str("key", f.unitKey).Int("ranges", len(ranges))
			if len(ranges) > 0 {
				ev = ev.Str("first", ranges[0].Start).Str("last", ranges[len(ranges)-1].End)
			}
			ev.Msg("feed ok")
		}(f)
	}

	wg.Wait()
	log.Info().Int("feeds", len(feeds)).Int64("failed", atomic.LoadInt64(&failed)).Msg("calsync completed")
	if failed > 0 {
		os.Exit(1)
	}
}
