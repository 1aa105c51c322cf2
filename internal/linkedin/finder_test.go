package linkedin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kremlit/email-enricher/internal/linkedin"
)

func TestFindDirectProbe(t *testing.T) {
	profiles := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in/john.smith" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer profiles.Close()

	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer search.Close()

	f := linkedin.NewFinder(
		linkedin.WithProfileBase(profiles.URL),
		linkedin.WithSearchBase(search.URL),
	)

	got := f.Find(context.Background(), "john.smith@example.com")

	require.Equal(t, linkedin.StatusFound, got.Status)
	assert.Equal(t, profiles.URL+"/in/john.smith", got.ProfileURL)
	assert.Equal(t, "direct_probe", got.Source)
}

func TestFindSearchFallback(t *testing.T) {
	profiles := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer profiles.Close()

	page := `<html><body>
		<div class="result">
			<a href="/l/?kh=-1&amp;uddg=https%3A%2F%2Fwww.linkedin.com%2Fin%2Fjohn-smith-123">John Smith - Acme Corp</a>
		</div>
	</body></html>`

	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer search.Close()

	f := linkedin.NewFinder(
		linkedin.WithProfileBase(profiles.URL),
		linkedin.WithSearchBase(search.URL),
	)

	got := f.Find(context.Background(), "john@example.com")

	require.Equal(t, linkedin.StatusFound, got.Status)
	assert.Equal(t, "https://www.linkedin.com/in/john-smith-123", got.ProfileURL)
	assert.Equal(t, "John Smith - Acme Corp", got.Title)
	assert.Equal(t, "web_search", got.Source)
}

func TestFindNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := linkedin.NewFinder(
		linkedin.WithProfileBase(srv.URL),
		linkedin.WithSearchBase(srv.URL),
	)

	got := f.Find(context.Background(), "nobody@example.com")

	assert.Equal(t, linkedin.StatusNotFound, got.Status)
	assert.Empty(t, got.ProfileURL)
}

func TestFindMalformedEmail(t *testing.T) {
	f := linkedin.NewFinder()

	assert.Equal(t, linkedin.StatusNotFound, f.Find(context.Background(), "not-an-email").Status)
	assert.Equal(t, linkedin.StatusNotFound, f.Find(context.Background(), "@example.com").Status)
}
