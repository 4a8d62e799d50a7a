package webapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/app/handlers"
	"github.com/ts4z/faablab/assets"
	"github.com/ts4z/faablab/board"
	"github.com/ts4z/faablab/dep"
	"github.com/ts4z/faablab/faabapi"
	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/middleware"
	"github.com/ts4z/faablab/middleware/labrea"
	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/prefs"
	"github.com/ts4z/faablab/state"
	"github.com/ts4z/faablab/textutil"
	"github.com/ts4z/faablab/urlpath"
	"github.com/ts4z/faablab/varz"
)

var (
	boardsRendered   = varz.NewInt("boardsRendered")
	boardUnavailable = varz.NewInt("boardUnavailable")
	bidsForwarded    = varz.NewInt("bidsForwarded")
	bidsFailed       = varz.NewInt("bidsFailed")
	prefsSaveFailed  = varz.NewInt("prefsSaveFailed")
)

type nower interface {
	Now() time.Time
}

// Config holds the configuration for creating a new App.
type Config struct {
	WeekStorage state.WeekStorage
	Prefs       prefs.Store
	SubFS       fs.FS
	Clock       nower

	// CurrentWeek is where / lands.  FAAB weeks before it are over, so
	// every card is shown.
	CurrentWeek model.Week

	AllowedOrigins []string
	DisableCaching bool

	// BreakerState, if set, is reported by /healthz.
	BreakerState func() string
}

// App is the main web application.
type App struct {
	// storage
	templates *template.Template
	subFS     fs.FS

	// dependencies
	weekStorage  state.WeekStorage
	prefs        prefs.Store
	clock        nower
	currentWeek  model.Week
	breakerState func() string

	// internals
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a new App with the given configuration.
func New(config *Config) *App {
	if config.CurrentWeek <= 0 {
		log.Fatalf("current week must be positive, got %d", config.CurrentWeek)
	}

	app := &App{
		weekStorage:  dep.Required(config.WeekStorage),
		prefs:        dep.Required(config.Prefs),
		subFS:        dep.Required(config.SubFS),
		clock:        dep.Required(config.Clock),
		currentWeek:  config.CurrentWeek,
		breakerState: config.BreakerState,
		mux:          http.NewServeMux(),
	}

	// Stack the handlers together.
	csp := http.NewCrossOriginProtection()
	logger := middleware.NewRequestLogger(csp.Handler(app.mux), app.clock)
	tarpit := labrea.New(nil, logger)
	corsMW := cors.New(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	for _, origin := range config.AllowedOrigins {
		log.WithField("origin", origin).Info("CORS allowing origin")
	}
	app.handler = corsMW.Handler(tarpit)

	app.loadTemplates()
	app.InstallHandlers(config.DisableCaching)

	return app
}

// Handler returns the configured HTTP handler.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) handleFunc(pattern string, handler func(context.Context, http.ResponseWriter, *http.Request)) {
	app.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		handler(ctx, w, r)
	})
}

func (app *App) handleFuncTakingWeek(pattern string, handler func(context.Context, model.Week, http.ResponseWriter, *http.Request)) {
	app.handleFunc(pattern, func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		week, err := urlpath.WeekPathValue(r)
		if err != nil {
			he.SendErrorToHTTPClient(w, "parse url", err)
			return
		}
		handler(ctx, week, w, r)
	})
}

// apiHandleFuncTakingWeek is for JSON endpoints built from live data, so
// nothing caches them.
func (app *App) apiHandleFuncTakingWeek(pattern string, handler func(context.Context, model.Week, http.ResponseWriter, *http.Request)) {
	app.mux.Handle(pattern, middleware.NewCacheHeaderAdder(&middleware.CacheHeaderAdderConfig{
		NoStore: true,
		Next: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			week, err := urlpath.WeekPathValue(r)
			if err != nil {
				he.SendJSONError(w, "parse url", err)
				return
			}
			handler(r.Context(), week, w, r)
		}),
	}))
}

// isPast reports whether a FAAB week is over.  Auction weeks never are.
func (app *App) isPast(week model.Week) bool {
	return !week.IsAuction() && week < app.currentWeek
}

// upstream gives data service failures a status that blames the data
// service.  An open breaker already carries a 503.
func upstream(err error) error {
	var se *faabapi.StatusError
	if errors.As(err, &se) {
		return he.New(http.StatusBadGateway, err)
	}
	return err
}

func (app *App) loadPrefs(ctx context.Context, r *http.Request) *model.Preferences {
	p, err := app.prefs.Load(ctx, r)
	if err != nil {
		log.WithError(err).Warn("can't load preferences, using defaults")
		return model.DefaultPreferences()
	}
	return p
}

func (app *App) savePrefs(ctx context.Context, w http.ResponseWriter, r *http.Request, p *model.Preferences) {
	if err := app.prefs.Save(ctx, w, r, p); err != nil {
		prefsSaveFailed.Add(1)
		log.WithError(err).Warn("can't save preferences")
	}
}

func (app *App) buildBoard(ctx context.Context, week model.Week, p *model.Preferences) (*board.Board, error) {
	wd, err := app.weekStorage.FetchWeek(ctx, week)
	if err != nil {
		return nil, upstream(err)
	}
	boardsRendered.Add(1)
	return board.Build(wd, board.Options{
		Settings:   p.League,
		IsRevealed: p.IsRevealed,
		RevealAll:  app.isPast(week),
	}), nil
}

func (app *App) render(w http.ResponseWriter, code int, name string, args any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := app.templates.ExecuteTemplate(w, name, args); err != nil {
		log.WithError(err).WithField("template", name).Error("can't render template")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		he.SendJSONError(w, "marshal response", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writ, err := w.Write(bytes)
	if err != nil {
		log.WithError(err).Info("error writing response to client")
	} else if writ != len(bytes) {
		log.Info("short write to client")
	}
}

func (app *App) handleIndex(_ context.Context, w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, weekPath(app.currentWeek), http.StatusFound)
}

func weekPath(week model.Week) string {
	return "/w/" + strconv.Itoa(int(week))
}

func (app *App) InstallHandlers(disableCaching bool) {

	app.handleFunc("GET /{$}", app.handleIndex)

	app.handleFunc("GET /favicon.ico", func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, app.subFS, "favicon.svg")
	})

	app.mux.HandleFunc("GET /robots.txt", handlers.HandleRobotsTXT)

	app.mux.HandleFunc("GET /healthz", handlers.Healthz(app.clock, app.breakerState))

	app.mux.Handle("GET /varz", varz.Handler())

	// anything in fs is a file trivially shared
	app.mux.Handle("GET /fs/", middleware.NewCacheHeaderAdder(&middleware.CacheHeaderAdderConfig{
		Disabled: disableCaching,
		Next:     http.StripPrefix("/fs/", http.FileServer(http.FS(app.subFS))),
		MaxAge:   24 * time.Hour,
	}))

	app.handleFuncTakingWeek("GET /w/{week}", app.handleBoard)

	app.handleFuncTakingWeek("POST /w/{week}/bid", app.handleBid)

	app.handleFuncTakingWeek("GET /top/{week}", app.handleTop)

	app.handleFunc("GET /settings", app.handleSettings)
	app.handleFunc("POST /settings", app.handleSettings)

	app.apiHandleFuncTakingWeek("GET /api/w/{week}", app.handleAPIBoard)
	app.handleFunc("GET /api/convert", app.handleAPIConvert)
	app.handleFunc("POST /api/bid", app.handleAPIBid)
}

var templateFuncs = template.FuncMap{
	"money":    money,
	"json":     toJSON,
	"weekPath": weekPath,
	"plural":   textutil.Plural,
	"slider":   sliderData,
}

func (app *App) loadTemplates() {
	var err error
	if app.templates, err = template.New("root").Funcs(templateFuncs).ParseFS(assets.Templates, "templates/*[^~]"); err != nil {
		log.Fatalf("error loading embedded templates: %v", err)
	}
	for _, tmpl := range app.templates.Templates() {
		log.WithField("template", tmpl.Name()).Debug("loaded template")
	}
}

// contextualizer hands requests the server's values but not its
// cancellation, so Shutdown can drain in-flight requests.
func contextualizer(ctx context.Context) func(net.Listener) context.Context {
	base := context.WithoutCancel(ctx)
	return func(_ net.Listener) context.Context {
		return base
	}
}

// Serve runs the HTTP server until ctx is done, then shuts it down.
func (app *App) Serve(ctx context.Context, listenAddress string) error {
	server := &http.Server{
		Addr:              listenAddress,
		Handler:           app.handler,
		BaseContext:       contextualizer(ctx),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("address", listenAddress).Info("listening")
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server exited: %w", err)
	case <-ctx.Done():
	}

	// ctx is done; shut down on a fresh one.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
