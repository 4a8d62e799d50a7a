package form

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
)

func TestApplyLeagueSettings(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		want    model.LeagueSettings
		wantErr bool
	}{
		{
			name: "empty form keeps everything",
			form: url.Values{},
			want: model.BaselineLeague,
		},
		{
			name: "all fields",
			form: url.Values{"teamCount": {"10"}, "scoring": {"full-ppr"}, "budget": {" 300 "}, "superflex": {"on"}},
			want: model.LeagueSettings{TeamCount: 10, Scoring: model.ScoringFullPPR, Budget: 300, IsSuperflex: true},
		},
		{
			name: "scoring is case insensitive",
			form: url.Values{"scoring": {"Standard"}},
			want: model.LeagueSettings{TeamCount: 12, Scoring: model.ScoringStandard, Budget: 200},
		},
		{
			name:    "bad team count",
			form:    url.Values{"teamCount": {"twelve"}},
			wantErr: true,
		},
		{
			name:    "zero budget",
			form:    url.Values{"budget": {"0"}},
			wantErr: true,
		},
		{
			name:    "budget too small",
			form:    url.Values{"budget": {"40"}},
			wantErr: true,
		},
		{
			name:    "budget too big",
			form:    url.Values{"budget": {"1,000"}},
			wantErr: true,
		},
		{
			name:    "absurd budget",
			form:    url.Values{"budget": {"2000000000"}},
			wantErr: true,
		},
		{
			name: "largest budget",
			form: url.Values{"budget": {"500"}},
			want: model.LeagueSettings{TeamCount: 12, Scoring: model.ScoringHalfPPR, Budget: 500},
		},
		{
			name:    "unknown scoring",
			form:    url.Values{"scoring": {"six-point-td"}},
			wantErr: true,
		},
		{
			name:    "bad checkbox",
			form:    url.Values{"superflex": {"maybe"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyLeagueSettings(tt.form, model.BaselineLeague)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 400, he.CodeOf(err, 0))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsFromFormUncheckedSuperflex(t *testing.T) {
	form := url.Values{"teamCount": {"14"}, "scoring": {"half-ppr"}, "budget": {"100"}}
	got, err := SettingsFromForm(form)
	require.NoError(t, err)
	assert.False(t, got.IsSuperflex)
	assert.Equal(t, 14, got.TeamCount)
	_, ok := form["superflex"]
	assert.False(t, ok, "caller's form is untouched")
}

func TestBidFromForm(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		want    *BidForm
		wantErr bool
	}{
		{
			name: "full bid",
			form: url.Values{"player": {"301"}, "target": {"9"}, "position": {"wr"}, "value": {"25"}},
			want: &BidForm{Player: 301, TargetID: 9, Position: model.WR, Value: 25},
		},
		{
			name: "target defaults to player and position to RB",
			form: url.Values{"player": {"301"}, "value": {"0"}},
			want: &BidForm{Player: 301, TargetID: 301, Position: model.RB, Value: 0},
		},
		{
			name:    "no player",
			form:    url.Values{"value": {"3"}},
			wantErr: true,
		},
		{
			name:    "no value",
			form:    url.Values{"player": {"1"}},
			wantErr: true,
		},
		{
			name:    "negative value",
			form:    url.Values{"player": {"1"}, "value": {"-4"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BidFromForm(tt.form)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 400, he.CodeOf(err, 0))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBidCheckMax(t *testing.T) {
	bf := &BidForm{Player: 1, TargetID: 1, Value: 100}
	assert.NoError(t, bf.CheckMax(100))

	bf.Value = 101
	err := bf.CheckMax(100)
	require.Error(t, err)
	assert.Equal(t, 400, he.CodeOf(err, 0))
}

func TestSearch(t *testing.T) {
	q, pos := Search(url.Values{"q": {"  chase "}, "pos": {"wr"}})
	assert.Equal(t, "chase", q)
	assert.Equal(t, "WR", pos)

	q, pos = Search(url.Values{})
	assert.Empty(t, q)
	assert.Empty(t, pos)
}
