package model

// Player is a waiver or auction target for one week.
type Player struct {
	ID       int64    `json:"id"`
	TargetID int64    `json:"target_id"`
	Name     string   `json:"name"`
	Team     string   `json:"team"`
	Position Position `json:"position"`
	Image    string   `json:"image,omitempty"`
}

// Week is the data service's week number.  Auction-draft "weeks" are
// multiples of 1000; everything else is a FAAB week.
type Week int

func (w Week) IsAuction() bool {
	return int(w)%1000 == 0
}

// FAABBudget is the slider ceiling for percentage-of-FAAB weeks.
const FAABBudget = 100

// MaxBid is the slider ceiling for the week, and the largest bid accepted:
// the league budget (clamped to [MinBudget, MaxBudget]) in auction weeks,
// 100 (percent) otherwise.
func (w Week) MaxBid(ls LeagueSettings) int {
	if !w.IsAuction() {
		return FAABBudget
	}
	if ls.Budget <= 0 {
		return BaselineLeague.Budget
	}
	// Settings from an old cookie or row never went through Validate.
	return min(max(ls.Budget, MinBudget), MaxBudget)
}

// WeekData is what the data service knows about a week.
type WeekData struct {
	Week       Week
	Players    []*Player
	Histograms map[int64]*BidHistogram
}

// Histogram returns the player's histogram, or nil.
func (wd *WeekData) Histogram(playerID int64) *BidHistogram {
	if wd == nil || wd.Histograms == nil {
		return nil
	}
	return wd.Histograms[playerID]
}

// Bid is a bid as the data service records it.  Value is in baseline units
// for auction weeks and percent of FAAB otherwise; zero means the user opted
// out of recording a bid.
type Bid struct {
	Week   Week  `json:"week"`
	Player int64 `json:"player"`
	Value  int   `json:"value"`
}
