package state

// package state describes where weeks and preferences come from.

import (
	"context"

	"github.com/google/uuid"

	"github.com/ts4z/faablab/model"
)

type Closer interface {
	Close()
}

// WeekStorage is the bid data service as the app sees it.
type WeekStorage interface {
	Closer

	FetchTargets(ctx context.Context, week model.Week) ([]*model.Player, error)
	FetchStats(ctx context.Context, week model.Week) (map[int64]*model.BidHistogram, error)
	// FetchWeek is targets and stats together.
	FetchWeek(ctx context.Context, week model.Week) (*model.WeekData, error)
	// SubmitBid records a bid.  Conversion to baseline is the caller's job.
	SubmitBid(ctx context.Context, bid *model.Bid) error
}

// PreferenceStorage keeps per-visitor UI state.
type PreferenceStorage interface {
	Closer

	// FetchPreferences returns an *he.HTTPError with code 404 if the visitor
	// has nothing saved.
	FetchPreferences(ctx context.Context, visitor uuid.UUID) (*model.Preferences, error)
	SavePreferences(ctx context.Context, visitor uuid.UUID, p *model.Preferences) error
	DeletePreferences(ctx context.Context, visitor uuid.UUID) error
}
