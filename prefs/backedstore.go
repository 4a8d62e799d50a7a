package prefs

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/dep"
	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/state"
)

type visitorCookie struct {
	Visitor string `json:"v"`
}

// BackedStore keeps a visitor id in the cookie and preferences in storage.
type BackedStore struct {
	jar
	storage state.PreferenceStorage
}

var _ Store = &BackedStore{}

func NewBackedStore(keys Keys, secure bool, storage state.PreferenceStorage) (*BackedStore, error) {
	sc, err := keys.codec()
	if err != nil {
		return nil, err
	}
	return &BackedStore{
		jar:     jar{sc: sc, secure: secure},
		storage: dep.Required(storage),
	}, nil
}

// visitor returns the id in the request's cookie, if there is a good one.
func (s *BackedStore) visitor(r *http.Request) (uuid.UUID, bool) {
	vc := &visitorCookie{}
	if err := s.read(r, vc); err != nil {
		if !errors.Is(err, http.ErrNoCookie) {
			log.WithError(err).Debug("can't decode visitor cookie")
		}
		return uuid.Nil, false
	}
	id, err := uuid.Parse(vc.Visitor)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *BackedStore) Load(ctx context.Context, r *http.Request) (*model.Preferences, error) {
	id, ok := s.visitor(r)
	if !ok {
		return model.DefaultPreferences(), nil
	}
	p, err := s.storage.FetchPreferences(ctx, id)
	if he.IsNotFound(err) {
		return model.DefaultPreferences(), nil
	}
	if err != nil {
		return nil, err
	}
	p.League = p.League.WithDefaults()
	return p, nil
}

// Save writes p, minting a visitor id if the request didn't have one.  If
// someone else wrote first (another tab, say), their reveals are kept and
// p's league settings win.
func (s *BackedStore) Save(ctx context.Context, w http.ResponseWriter, r *http.Request, p *model.Preferences) error {
	id, ok := s.visitor(r)
	if !ok {
		id = uuid.New()
		p.OptimisticLock = 0
		if err := s.write(w, &visitorCookie{Visitor: id.String()}); err != nil {
			return err
		}
		log.WithField("visitor", id).Debug("new visitor")
	}

	err := s.storage.SavePreferences(ctx, id, p)
	if he.CodeOf(err, 0) != http.StatusConflict {
		return err
	}

	current, ferr := s.storage.FetchPreferences(ctx, id)
	switch {
	case he.IsNotFound(ferr):
		p.OptimisticLock = 0
	case ferr != nil:
		return ferr
	default:
		for _, t := range p.Revealed {
			current.Reveal(t)
		}
		current.League = p.League
		*p = *current
	}
	return s.storage.SavePreferences(ctx, id, p)
}

func (s *BackedStore) Forget(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	Clear(w)
	id, ok := s.visitor(r)
	if !ok {
		return nil
	}
	if err := s.storage.DeletePreferences(ctx, id); err != nil && !he.IsNotFound(err) {
		return err
	}
	log.WithField("visitor", id).Debug("visitor forgotten")
	return nil
}
