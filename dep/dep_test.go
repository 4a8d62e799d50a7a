package dep

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequired(t *testing.T) {
	mux := http.NewServeMux()
	assert.Same(t, mux, Required(mux))
	assert.Equal(t, 3, Required(3))
	assert.Equal(t, "", Required(""))

	var r io.Reader = strings.NewReader("x")
	assert.Equal(t, r, Required(r))
}

func TestRequiredPanicsOnNil(t *testing.T) {
	var mux *http.ServeMux
	assert.Panics(t, func() { Required(mux) })

	var h http.Handler
	assert.Panics(t, func() { Required(h) })

	h = mux
	assert.Panics(t, func() { Required(h) }, "typed nil in an interface")

	var f func()
	assert.Panics(t, func() { Required(f) })
}
