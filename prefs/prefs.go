/*
Package prefs remembers a visitor's league settings and revealed cards
between requests.

There are two stores.  CookieStore keeps everything in a signed, encrypted
cookie.  BackedStore keeps only a visitor id in the cookie and the
preferences in a state.PreferenceStorage.
*/
package prefs

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	log "github.com/sirupsen/logrus"

	"github.com/ts4z/faablab/model"
)

const (
	CookieName = "faablab-prefs"

	cookieMaxAge = 365 * 24 * time.Hour

	// these sizes are recommended by the gorilla/securecookie package
	// https://pkg.go.dev/github.com/gorilla/securecookie#New
	HashKeySize  = 32
	BlockKeySize = 32
)

// Store loads and saves preferences for the visitor making a request.
type Store interface {
	// Load never returns nil preferences: a new visitor gets the defaults.
	Load(ctx context.Context, r *http.Request) (*model.Preferences, error)
	Save(ctx context.Context, w http.ResponseWriter, r *http.Request, p *model.Preferences) error
	// Forget drops everything stored about the visitor.
	Forget(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Keys are the securecookie keys, base64 encoded as they appear in config.
type Keys struct {
	HashKey64  string
	BlockKey64 string
}

// GenerateKeys makes a fresh pair.
func GenerateKeys() Keys {
	return Keys{
		HashKey64:  base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(HashKeySize)),
		BlockKey64: base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(BlockKeySize)),
	}
}

// codec builds the securecookie.  Missing keys get random ones, which works
// until the process restarts.
func (k Keys) codec() (*securecookie.SecureCookie, error) {
	if k.HashKey64 == "" || k.BlockKey64 == "" {
		log.Warn("no cookie keys configured; preferences won't survive a restart")
		k = GenerateKeys()
	}
	hashKey, err := base64.StdEncoding.DecodeString(k.HashKey64)
	if err != nil {
		return nil, fmt.Errorf("bad cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(k.BlockKey64)
	if err != nil {
		return nil, fmt.Errorf("bad cookie block key: %w", err)
	}
	if len(hashKey) < HashKeySize {
		return nil, fmt.Errorf("cookie hash key is %d bytes, want at least %d", len(hashKey), HashKeySize)
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("cookie block key is %d bytes, want 16, 24 or 32", len(blockKey))
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(cookieMaxAge.Seconds()))
	return sc, nil
}

// jar reads and writes the one cookie both stores use.
type jar struct {
	sc     *securecookie.SecureCookie
	secure bool
}

func (j *jar) read(r *http.Request, dst any) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return err
	}
	return j.sc.Decode(CookieName, cookie.Value, dst)
}

func (j *jar) write(w http.ResponseWriter, v any) error {
	encoded, err := j.sc.Encode(CookieName, v)
	if err != nil {
		return fmt.Errorf("can't encode cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Secure:   j.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the cookie.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    CookieName,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(1, 0),
		MaxAge:  -1,
	})
}
