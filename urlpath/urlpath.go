package urlpath

import (
	"net/http"
	"strconv"

	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
)

// WeekPathValue extracts the "week" path variable from the request and
// parses it.  Weeks are positive; auction weeks are multiples of 1000.
func WeekPathValue(r *http.Request) (model.Week, error) {
	s := r.PathValue("week")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, he.HTTPCodedErrorf(400, "can't parse week from url path: %v", err)
	}
	if n <= 0 {
		return 0, he.HTTPCodedErrorf(400, "week must be positive, got %d", n)
	}
	return model.Week(n), nil
}
