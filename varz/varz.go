/*
varz provides helpers to create expvar variables with package-qualified names,
and serves them at /varz.

Names look like "github.com/ts4z/faablab/dbcache.weekCacheHits".
*/
package varz

import (
	"expvar"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// callerPackage returns the package name of the caller of the
// function.  Use a loose heuristic to get that split apart.
// If the variable is declared in a var block, this will remove the
// "init" bit.
func callerPackage() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "varz.unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "varz.unknown"
	}

	n := fn.Name()
	dot := strings.LastIndex(n, ".")
	if dot != -1 {
		n = n[:dot]
	}

	return n
}

func NewInt(name string) *expvar.Int {
	return expvar.NewInt(fmt.Sprintf("%s.%s", callerPackage(), name))
}

func NewMap(name string) *expvar.Map {
	return expvar.NewMap(fmt.Sprintf("%s.%s", callerPackage(), name))
}

// Handler serves every published variable as JSON, same as
// /debug/vars.
func Handler() http.Handler {
	return expvar.Handler()
}

// Snapshot reads the current value of the named variables, for health
// pages and tests.  Unknown names are skipped.
func Snapshot(names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v := expvar.Get(n); v != nil {
			out[n] = v.String()
		}
	}
	return out
}
