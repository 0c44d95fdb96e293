package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/loaders/httpfetch"
)

func topic(name string) domain.SourceDescriptor {
	return domain.SourceDescriptor{Type: domain.SourceTypeWikipedia, Origin: name}
}

func newTestLoader(t *testing.T, handler http.HandlerFunc) *Loader {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWithEndpoint(httpfetch.New(), "pt", server.URL+"/w/api.php")
}

func TestLoader_SourceTypes(t *testing.T) {
	assert.Equal(t, []domain.SourceType{domain.SourceTypeWikipedia}, New(httpfetch.New(), "").SourceTypes())
}

func TestLoader_Load(t *testing.T) {
	var query map[string]string
	loader := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"batchcomplete":true,"query":{
			"redirects":[{"from":"Rule of Thirds","to":"Rule of thirds"}],
			"pages":[{"pageid":1234,"ns":0,"title":"Rule of thirds",
			"extract":"The rule of thirds is a guideline.\n\n\n== Use ==\nPlace subjects on the lines.\n"}]}}`))
	})

	doc, err := loader.Load(context.Background(), topic("Rule of Thirds"))
	require.NoError(t, err)

	assert.Equal(t, "Rule of thirds", doc.Title)
	assert.Equal(t, "The rule of thirds is a guideline.\n\nUse\nPlace subjects on the lines.", doc.Content)
	assert.Equal(t, "Rule of Thirds", doc.Origin)
	assert.Equal(t, topic("Rule of Thirds").DocumentID(), doc.ID)
	assert.Equal(t, 1234, doc.Metadata["page_id"])
	assert.Equal(t, "Rule of Thirds", doc.Metadata["redirected_from"])
	assert.Equal(t, "pt", doc.Metadata["language"])

	assert.Equal(t, "query", query["action"])
	assert.Equal(t, "extracts", query["prop"])
	assert.Equal(t, "1", query["explaintext"])
	assert.Equal(t, "1", query["redirects"])
	assert.Equal(t, "Rule of Thirds", query["titles"])
}

func TestLoader_Load_MissingPage(t *testing.T) {
	loader := newTestLoader(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"pages":[{"ns":0,"title":"Nonexistent photo topic","missing":true}]}}`))
	})

	_, err := loader.Load(context.Background(), topic("Nonexistent photo topic"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIngestion)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		is       error
		contains string
	}{
		{name: "invalid title", status: 200, body: `{"query":{"pages":[{"title":"a|b","invalid":true}]}}`, is: domain.ErrNotFound},
		{name: "no pages", status: 200, body: `{"query":{}}`, is: domain.ErrNotFound},
		{name: "empty extract", status: 200, body: `{"query":{"pages":[{"pageid":1,"title":"Stub","extract":"  "}]}}`, is: domain.ErrEmptyContent},
		{name: "api error", status: 200, body: `{"error":{"code":"badvalue","info":"Unrecognized value"}}`, contains: "badvalue"},
		{name: "bad json", status: 200, body: `<html>`, contains: "decode response"},
		{name: "server error", status: 503, body: ``, contains: "503"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			loader := newTestLoader(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := loader.Load(context.Background(), topic("Exposure"))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrIngestion)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
			if tc.contains != "" {
				assert.Contains(t, err.Error(), tc.contains)
			}
		})
	}
}

func TestLoader_Load_EmptyTopic(t *testing.T) {
	_, err := New(httpfetch.New(), "en").Load(context.Background(), topic("  "))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoader_QueryURL(t *testing.T) {
	l := New(httpfetch.New(), "pt")
	u := l.queryURL("Regra dos terços")
	assert.Contains(t, u, "https://pt.wikipedia.org/w/api.php?")
	assert.Contains(t, u, "titles=Regra+dos+ter%C3%A7os")
}
