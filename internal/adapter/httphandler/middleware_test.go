package httphandler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("Sheds", func(t *testing.T) {
		h := RateLimit(0.001, 2)(ok)

		assert.Equal(t, http.StatusNoContent, do(h, http.MethodGet, "/", "").Code)
		assert.Equal(t, http.StatusNoContent, do(h, http.MethodGet, "/", "").Code)

		rec := do(h, http.MethodGet, "/", "")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})

	t.Run("Disabled", func(t *testing.T) {
		h := RateLimit(0, 0)(ok)
		for range 10 {
			assert.Equal(t, http.StatusNoContent, do(h, http.MethodGet, "/", "").Code)
		}
	})
}

func TestRequestIDGenerated(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := do(h, http.MethodGet, "/", "").Header().Get(RequestIDHeader)
	second := do(h, http.MethodGet, "/", "").Header().Get(RequestIDHeader)

	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}
