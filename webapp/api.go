package webapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/board"
	"github.com/ts4z/faablab/convert"
	"github.com/ts4z/faablab/form"
	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
)

// handleAPIBoard serves the board as JSON.  Query parameters override the
// stored league settings without saving them.
func (app *App) handleAPIBoard(ctx context.Context, week model.Week, w http.ResponseWriter, r *http.Request) {
	p := app.loadPrefs(ctx, r)
	query := r.URL.Query()

	ls, err := form.ApplyLeagueSettings(query, p.League.WithDefaults())
	if err != nil {
		he.SendJSONError(w, "parse settings", err)
		return
	}
	p.League = ls

	b, err := app.buildBoard(ctx, week, p)
	if err != nil {
		he.SendJSONError(w, "fetch week", err)
		return
	}
	q, pos := form.Search(query)
	writeJSON(w, b.Filtered(board.Query{Search: q, Position: model.Position(pos)}))
}

type convertResponse struct {
	Bid       float64        `json:"bid"`
	Converted float64        `json:"converted"`
	Direction string         `json:"direction"`
	Position  model.Position `json:"position"`
	Format    string         `json:"format"`
}

func (app *App) handleAPIConvert(_ context.Context, w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	bid, err := strconv.ParseFloat(strings.TrimSpace(query.Get("bid")), 64)
	if err != nil {
		he.SendJSONError(w, "parse bid", he.HTTPCodedErrorf(http.StatusBadRequest, "can't parse bid: %v", err))
		return
	}
	if bid < 0 {
		he.SendJSONError(w, "parse bid", he.HTTPCodedErrorf(http.StatusBadRequest, "bid can't be negative"))
		return
	}

	ls, err := form.ApplyLeagueSettings(query, model.BaselineLeague)
	if err != nil {
		he.SendJSONError(w, "parse settings", err)
		return
	}
	pos := model.ParsePosition(query.Get("position"))

	resp := &convertResponse{
		Bid:       bid,
		Direction: query.Get("direction"),
		Position:  pos,
		Format:    convert.DisplayFormat(ls),
	}
	switch resp.Direction {
	case "", "to":
		resp.Direction = "to"
		resp.Converted = convert.ToBaseline(bid, ls, pos)
	case "from":
		resp.Converted = convert.FromBaseline(bid, ls, pos)
	default:
		he.SendJSONError(w, "parse direction", he.HTTPCodedErrorf(http.StatusBadRequest, "direction must be to or from, got %q", resp.Direction))
		return
	}
	writeJSON(w, resp)
}

type apiBidRequest struct {
	Week     model.Week `json:"week"`
	Player   int64      `json:"player"`
	TargetID int64      `json:"target_id"`
	Position string     `json:"position"`
	Value    int        `json:"value"`
}

// maxBidRequestBytes is far more than any bid needs.
const maxBidRequestBytes = 4096

// handleAPIBid forwards a bid given in the visitor's league format and
// reveals the card.  Unlike the form, a failure to forward is reported.
func (app *App) handleAPIBid(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	req := &apiBidRequest{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBidRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		he.SendJSONError(w, "decode bid", he.HTTPCodedErrorf(http.StatusBadRequest, "can't decode bid: %v", err))
		return
	}
	switch {
	case req.Week <= 0:
		he.SendJSONError(w, "check bid", he.HTTPCodedErrorf(http.StatusBadRequest, "week must be positive"))
		return
	case req.Player <= 0:
		he.SendJSONError(w, "check bid", he.HTTPCodedErrorf(http.StatusBadRequest, "no player in bid"))
		return
	case req.Value < 0:
		he.SendJSONError(w, "check bid", he.HTTPCodedErrorf(http.StatusBadRequest, "bid can't be negative"))
		return
	}
	if req.TargetID == 0 {
		req.TargetID = req.Player
	}

	bf := &form.BidForm{
		Player:   req.Player,
		TargetID: req.TargetID,
		Position: model.ParsePosition(req.Position),
		Value:    req.Value,
	}

	p := app.loadPrefs(ctx, r)
	if err := bf.CheckMax(req.Week.MaxBid(p.League)); err != nil {
		he.SendJSONError(w, "check bid", err)
		return
	}
	bid, err := app.forwardBid(ctx, req.Week, bf, p.League)
	if p.Reveal(bf.TargetID) {
		app.savePrefs(ctx, w, r, p)
	}
	if err != nil {
		log.WithError(err).WithField("week", req.Week).Warn("can't forward bid")
		he.SendJSONError(w, "forward bid", err)
		return
	}
	writeJSON(w, bid)
}
