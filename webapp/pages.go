package webapp

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/board"
	"github.com/ts4z/faablab/convert"
	"github.com/ts4z/faablab/form"
	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
)

type boardArgs struct {
	Board       *board.Board
	Week        model.Week
	CurrentWeek model.Week
	Search      string
	Position    string
	Positions   []model.Position
	Total       int
	Unavailable string
}

func (app *App) handleBoard(ctx context.Context, week model.Week, w http.ResponseWriter, r *http.Request) {
	p := app.loadPrefs(ctx, r)
	q, pos := form.Search(r.URL.Query())
	args := &boardArgs{
		Week:        week,
		CurrentWeek: app.currentWeek,
		Search:      q,
		Position:    pos,
		Positions:   model.Positions,
	}

	b, err := app.buildBoard(ctx, week, p)
	if err != nil {
		// The page still renders; it just has nothing on it.
		boardUnavailable.Add(1)
		log.WithError(err).WithField("week", week).Warn("no data for board")
		args.Unavailable = "No data available for this week right now."
		app.render(w, he.CodeOf(err, http.StatusServiceUnavailable), "board.html.tmpl", args)
		return
	}
	args.Total = len(b.Cards)
	args.Board = b.Filtered(board.Query{Search: q, Position: model.Position(pos)})
	app.render(w, http.StatusOK, "board.html.tmpl", args)
}

// baselineValue converts what the user typed to what the data service
// stores.  FAAB percentages pass through.
func baselineValue(week model.Week, value int, ls model.LeagueSettings, pos model.Position) int {
	if !week.IsAuction() {
		return value
	}
	return int(math.Round(convert.ToBaseline(float64(value), ls, pos)))
}

// forwardBid sends the bid on.  The caller decides whether a failure
// matters.
func (app *App) forwardBid(ctx context.Context, week model.Week, bf *form.BidForm, ls model.LeagueSettings) (*model.Bid, error) {
	bid := &model.Bid{
		Week:   week,
		Player: bf.Player,
		Value:  baselineValue(week, bf.Value, ls, bf.Position),
	}
	if err := app.weekStorage.SubmitBid(ctx, bid); err != nil {
		bidsFailed.Add(1)
		return bid, upstream(err)
	}
	bidsForwarded.Add(1)
	return bid, nil
}

func (app *App) handleBid(ctx context.Context, week model.Week, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		he.SendErrorToHTTPClient(w, "parse form", he.New(http.StatusBadRequest, err))
		return
	}
	bf, err := form.BidFromForm(r.PostForm)
	if err != nil {
		he.SendErrorToHTTPClient(w, "parse bid", err)
		return
	}

	p := app.loadPrefs(ctx, r)
	if err := bf.CheckMax(week.MaxBid(p.League)); err != nil {
		he.SendErrorToHTTPClient(w, "check bid", err)
		return
	}
	if bid, err := app.forwardBid(ctx, week, bf, p.League); err != nil {
		// Showing the card matters more than recording the bid.
		log.WithError(err).WithFields(log.Fields{"week": week, "player": bid.Player, "value": bid.Value}).
			Warn("can't forward bid, revealing anyway")
	}

	if p.Reveal(bf.TargetID) {
		app.savePrefs(ctx, w, r, p)
	}

	back := weekPath(week)
	if qs := r.PostForm.Get("return"); strings.HasPrefix(qs, "?") {
		back += qs
	}
	http.Redirect(w, r, fmt.Sprintf("%s#t%d", back, bf.TargetID), http.StatusSeeOther)
}

type topArgs struct {
	Week        model.Week
	Board       *board.Board
	Top         []board.TopTarget
	Unavailable string
}

func (app *App) handleTop(ctx context.Context, week model.Week, w http.ResponseWriter, r *http.Request) {
	p := app.loadPrefs(ctx, r)
	args := &topArgs{Week: week}

	b, err := app.buildBoard(ctx, week, p)
	if err != nil {
		boardUnavailable.Add(1)
		log.WithError(err).WithField("week", week).Warn("no data for top targets")
		args.Unavailable = "No data available for this week right now."
		app.render(w, he.CodeOf(err, http.StatusServiceUnavailable), "top.html.tmpl", args)
		return
	}
	args.Board = b
	args.Top = board.TopByPosition(b.Cards)
	app.render(w, http.StatusOK, "top.html.tmpl", args)
}

type settingsArgs struct {
	Settings   model.LeagueSettings
	Scorings   []model.Scoring
	TeamCounts []int
	Revealed   int
	Next       string
	Flash      string
}

// safeNext keeps redirects on this site.  Browsers read a backslash as a
// slash, so "/\\host" is as much a host as "//host" is.  The result keeps
// only the path and what follows it.
func safeNext(next string, def string) string {
	if next == "" || strings.ContainsFunc(next, func(r rune) bool { return r == '\\' || unicode.IsControl(r) }) {
		return def
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || u.User != nil || u.Opaque != "" {
		return def
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") || strings.Contains(u.Path, "\\") {
		return def
	}
	return (&url.URL{Path: u.Path, RawPath: u.RawPath, RawQuery: u.RawQuery, Fragment: u.Fragment}).String()
}

func (app *App) handleSettings(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	p := app.loadPrefs(ctx, r)
	args := &settingsArgs{
		Settings:   p.League,
		Scorings:   model.Scorings,
		TeamCounts: model.TeamCounts,
		Revealed:   len(p.Revealed),
		Next:       safeNext(r.URL.Query().Get("next"), weekPath(app.currentWeek)),
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			he.SendErrorToHTTPClient(w, "parse form", he.New(http.StatusBadRequest, err))
			return
		}
		args.Next = safeNext(r.PostForm.Get("next"), args.Next)

		switch r.PostForm.Get("action") {
		case "forget":
			p.Revealed = nil
			app.savePrefs(ctx, w, r, p)
			http.Redirect(w, r, args.Next, http.StatusSeeOther)
			return
		case "reset":
			if err := app.prefs.Forget(ctx, w, r); err != nil {
				prefsSaveFailed.Add(1)
				log.WithError(err).Warn("can't forget visitor")
			}
			http.Redirect(w, r, args.Next, http.StatusSeeOther)
			return
		}

		ls, err := form.SettingsFromForm(r.PostForm)
		if err != nil {
			log.WithError(err).Info("bad settings form")
			args.Flash = err.Error()
			app.render(w, he.CodeOf(err, http.StatusBadRequest), "settings.html.tmpl", args)
			return
		}
		p.League = ls
		app.savePrefs(ctx, w, r, p)
		http.Redirect(w, r, args.Next, http.StatusSeeOther)
		return
	}

	app.render(w, http.StatusOK, "settings.html.tmpl", args)
}
