// Package form turns submitted forms and query strings into model values.
package form

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
)

func maybeCopyString(form url.Values, dest *string, key string) {
	if v, ok := form[key]; ok && len(v) > 0 {
		*dest = v[0]
	}
}

func decomma(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}

func formNumberToInt64(s string) (int64, error) {
	s = decomma(s)
	return strconv.ParseInt(s, 10, 64)
}

func parseOptionalInt(form url.Values, key string) (*int64, error) {
	s := form.Get(key)
	if s == "" {
		return nil, nil
	}
	val, err := formNumberToInt64(s)
	if err != nil {
		return nil, he.HTTPCodedErrorf(400, "can't parse %s: %v", key, err)
	}
	return &val, nil
}

// parseCheckbox accepts what browsers and people type.  An absent key is
// reported as not present.
func parseCheckbox(form url.Values, key string) (bool, bool, error) {
	v, ok := form[key]
	if !ok || len(v) == 0 {
		return false, false, nil
	}
	switch strings.ToLower(strings.TrimSpace(v[0])) {
	case "on", "true", "1", "yes":
		return true, true, nil
	case "off", "false", "0", "no", "":
		return false, true, nil
	default:
		return false, true, he.HTTPCodedErrorf(400, "can't parse %s: %q", key, v[0])
	}
}

// ApplyLeagueSettings overlays whatever league fields the form carries on
// ls.  Missing fields keep their value.
func ApplyLeagueSettings(form url.Values, ls model.LeagueSettings) (model.LeagueSettings, error) {
	if n, err := parseOptionalInt(form, "teamCount"); err != nil {
		return ls, err
	} else if n != nil {
		ls.TeamCount = int(*n)
	}

	if n, err := parseOptionalInt(form, "budget"); err != nil {
		return ls, err
	} else if n != nil {
		ls.Budget = int(*n)
	}

	if s := form.Get("scoring"); s != "" {
		sc, err := model.ParseScoring(s)
		if err != nil {
			return ls, he.New(400, err)
		}
		ls.Scoring = sc
	}

	if sf, ok, err := parseCheckbox(form, "superflex"); err != nil {
		return ls, err
	} else if ok {
		ls.IsSuperflex = sf
	}

	if err := ls.Validate(); err != nil {
		return ls, he.New(400, err)
	}
	return ls, nil
}

// SettingsFromForm reads the settings page.  Checkboxes are absent when
// unchecked, so a settings form submission always sets superflex.
func SettingsFromForm(form url.Values) (model.LeagueSettings, error) {
	ls := model.BaselineLeague
	ls.IsSuperflex = false
	if _, ok := form["superflex"]; !ok {
		form = cloneWith(form, "superflex", "off")
	}
	return ApplyLeagueSettings(form, ls)
}

func cloneWith(form url.Values, key, value string) url.Values {
	c := make(url.Values, len(form)+1)
	for k, v := range form {
		c[k] = v
	}
	c.Set(key, value)
	return c
}

// BidForm is a bid as the user typed it: in the user's league format.
type BidForm struct {
	Player   int64
	TargetID int64
	Position model.Position
	Value    int
}

// BidFromForm parses the dashboard's bid form.  A zero value is a valid bid;
// it reveals the card without recording anything meaningful.
func BidFromForm(form url.Values) (*BidForm, error) {
	bf := &BidForm{}

	player, err := parseOptionalInt(form, "player")
	if err != nil {
		return nil, err
	} else if player == nil {
		return nil, he.HTTPCodedErrorf(400, "no player in bid")
	}
	bf.Player = *player

	if target, err := parseOptionalInt(form, "target"); err != nil {
		return nil, err
	} else if target != nil {
		bf.TargetID = *target
	} else {
		bf.TargetID = bf.Player
	}

	var pos string
	maybeCopyString(form, &pos, "position")
	bf.Position = model.ParsePosition(pos)

	value, err := parseOptionalInt(form, "value")
	if err != nil {
		return nil, err
	} else if value == nil {
		return nil, he.HTTPCodedErrorf(400, "no value in bid")
	} else if *value < 0 {
		return nil, he.HTTPCodedErrorf(400, "bid can't be negative")
	}
	bf.Value = int(*value)

	return bf, nil
}

// CheckMax rejects a bid above the week's ceiling.
func (bf *BidForm) CheckMax(max int) error {
	if bf.Value > max {
		return he.HTTPCodedErrorf(400, "bid %d is over the maximum of %d", bf.Value, max)
	}
	return nil
}

// Search reads the dashboard filters.
func Search(form url.Values) (q string, pos string) {
	maybeCopyString(form, &q, "q")
	maybeCopyString(form, &pos, "pos")
	return strings.TrimSpace(q), strings.ToUpper(strings.TrimSpace(pos))
}
