package model

import "slices"

// Preferences is what a browser remembers between visits: the league format
// and which cards have been revealed by bidding.
type Preferences struct {
	OptimisticLock int64 `json:"-"`

	League   LeagueSettings `json:"leagueSettings"`
	Revealed []int64        `json:"visible"`
}

func DefaultPreferences() *Preferences {
	return &Preferences{League: BaselineLeague}
}

func (p *Preferences) Clone() *Preferences {
	if p == nil {
		return nil
	}
	c := *p
	c.Revealed = slices.Clone(p.Revealed)
	return &c
}

func (p *Preferences) IsRevealed(targetID int64) bool {
	return slices.Contains(p.Revealed, targetID)
}

// Reveal records targetID; it reports whether anything changed.
func (p *Preferences) Reveal(targetID int64) bool {
	if p.IsRevealed(targetID) {
		return false
	}
	p.Revealed = append(p.Revealed, targetID)
	return true
}
