package prefs

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/model"
)

// maxCookieRevealed keeps the cookie under the browser's size limit.  The
// oldest reveals are dropped first.
const maxCookieRevealed = 150

// CookieStore keeps preferences entirely in the cookie.
type CookieStore struct {
	jar
}

var _ Store = &CookieStore{}

func NewCookieStore(keys Keys, secure bool) (*CookieStore, error) {
	sc, err := keys.codec()
	if err != nil {
		return nil, err
	}
	return &CookieStore{jar{sc: sc, secure: secure}}, nil
}

func (s *CookieStore) Load(_ context.Context, r *http.Request) (*model.Preferences, error) {
	p := &model.Preferences{}
	err := s.read(r, p)
	switch {
	case errors.Is(err, http.ErrNoCookie):
		return model.DefaultPreferences(), nil
	case err != nil:
		// Old keys or a mangled cookie.  Start over rather than fail.
		log.WithError(err).Debug("can't decode preferences cookie")
		return model.DefaultPreferences(), nil
	}
	p.League = p.League.WithDefaults()
	return p, nil
}

func (s *CookieStore) Save(_ context.Context, w http.ResponseWriter, _ *http.Request, p *model.Preferences) error {
	cpy := p.Clone()
	if n := len(cpy.Revealed); n > maxCookieRevealed {
		cpy.Revealed = cpy.Revealed[n-maxCookieRevealed:]
	}
	return s.write(w, cpy)
}

func (s *CookieStore) Forget(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
	Clear(w)
	return nil
}
