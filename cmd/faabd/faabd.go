package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ts4z/faablab/assets"
	"github.com/ts4z/faablab/config"
	"github.com/ts4z/faablab/dbcache"
	"github.com/ts4z/faablab/dbnotify"
	"github.com/ts4z/faablab/dbutil"
	"github.com/ts4z/faablab/faabapi"
	"github.com/ts4z/faablab/fakes"
	"github.com/ts4z/faablab/logging"
	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/prefs"
	"github.com/ts4z/faablab/state"
	"github.com/ts4z/faablab/webapp"
)

func newWeekStorage(clock clockwork.Clock) (state.WeekStorage, func() string, error) {
	var next state.WeekStorage
	var breakerState func() string
	if config.Demo() {
		log.Warn("serving made-up demo data")
		next = fakes.NewDemoWeekStorage()
	} else {
		client, err := faabapi.New(&faabapi.Config{
			BaseURL:         config.DataURL(),
			Timeout:         config.RequestTimeout(),
			BreakerFailures: config.BreakerFailures(),
			BreakerTimeout:  config.BreakerTimeout(),
		})
		if err != nil {
			return nil, nil, err
		}
		next = client
		breakerState = func() string { return client.State().String() }
	}
	return dbcache.NewWeekStorage(config.WeekCacheSize(), config.WeekCacheTTL(), clock, next), breakerState, nil
}

// newPrefsStore keeps preferences in Postgres when there is a database,
// and in the cookie otherwise.  The listener, if any, keeps the cache in
// step with other instances.
func newPrefsStore(ctx context.Context, clock clockwork.Clock) (prefs.Store, *dbnotify.DBNotifyListener, func(), error) {
	keys := prefs.Keys{HashKey64: config.CookieHashKey(), BlockKey64: config.CookieBlockKey()}
	secure := config.SecureCookies()

	db, err := dbutil.Connect(ctx)
	if errors.Is(err, dbutil.ErrNoDatabase) {
		log.Info("no database configured, preferences live in cookies")
		store, err := prefs.NewCookieStore(keys, secure)
		return store, nil, func() {}, err
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("can't connect to database: %w", err)
	}

	dbStorage := state.NewDBStorage(db)
	if err := dbStorage.EnsureSchema(ctx); err != nil {
		dbStorage.Close()
		return nil, nil, nil, fmt.Errorf("can't set up schema: %w", err)
	}
	cached := dbcache.NewPreferenceStorage(config.PreferenceCacheSize(), dbStorage)
	store, err := prefs.NewBackedStore(keys, secure, cached)
	if err != nil {
		cached.Close()
		return nil, nil, nil, err
	}
	listener, err := dbnotify.NewDBNotifyListener(db, clock, dbnotify.NewCacheInvalidator("preferences", cached))
	if err != nil {
		cached.Close()
		return nil, nil, nil, err
	}
	return store, listener, cached.Close, nil
}

func run(ctx context.Context) error {
	clock := clockwork.NewRealClock()
	subFS, err := fs.Sub(assets.FS, "fs")
	if err != nil {
		return fmt.Errorf("fs.Sub: %w", err)
	}

	weeks, breakerState, err := newWeekStorage(clock)
	if err != nil {
		return err
	}
	defer weeks.Close()

	store, listener, closeStore, err := newPrefsStore(ctx, clock)
	if err != nil {
		return err
	}
	defer closeStore()

	app := webapp.New(&webapp.Config{
		WeekStorage:    weeks,
		Prefs:          store,
		SubFS:          subFS,
		Clock:          clock,
		CurrentWeek:    model.Week(config.DefaultWeek()),
		AllowedOrigins: config.AllowedOrigins(),
		DisableCaching: config.DisableCaching(),
		BreakerState:   breakerState,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Serve(ctx, config.ListenAddress())
	})
	if listener != nil {
		g.Go(func() error {
			return listener.Run(ctx)
		})
	}
	return g.Wait()
}

func main() {
	config.Init()
	if err := logging.Setup(config.LogLevel(), config.LogFormat()); err != nil {
		log.Fatalf("can't set up logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("can't serve: %v", err)
	}
	log.Info("shut down cleanly")
}
