package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/papersources"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <opensearch:totalResults>25</opensearch:totalResults>
  <opensearch:startIndex>0</opensearch:startIndex>
  <opensearch:itemsPerPage>2</opensearch:itemsPerPage>
  <entry>
    <id>http://arxiv.org/abs/2301.12345v2</id>
    <published>2023-01-15T18:30:00Z</published>
    <title>Sparse Attention
      for Long Documents</title>
    <summary>  We propose a sparse
      attention mechanism.  </summary>
    <author><name>Ada Lovelace</name><arxiv:affiliation>Analytical Engines Ltd</arxiv:affiliation></author>
    <author><name> </name></author>
    <author><name>Alan Turing</name></author>
    <arxiv:doi>10.48550/arXiv.2301.12345</arxiv:doi>
    <arxiv:journal_ref>NeurIPS 2023</arxiv:journal_ref>
    <link href="http://arxiv.org/abs/2301.12345v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.12345v2" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.CL"/>
    <category term="cs.CL"/>
    <category term="cs.LG"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/hep-th/9901001v1</id>
    <published>1999-01-01T00:00:00Z</published>
    <title>Old Style Identifier</title>
    <summary>Strings.</summary>
  </entry>
  <entry>
    <id>http://example.com/not-arxiv</id>
    <title>Dropped</title>
  </entry>
</feed>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWithHTTPClient(Config{BaseURL: server.URL, Enabled: true}, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		RateLimit:  1000,
		BurstSize:  100,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}))
}

func TestClient_Search(t *testing.T) {
	var gotQuery map[string][]string
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(feedXML))
	})

	from, to := papersources.YearRange(2020, 2023)
	result, err := client.Search(context.Background(), papersources.SearchParams{
		Query:      "sparse attention",
		MaxResults: 2,
		DateFrom:   from,
		DateTo:     to,
	})
	require.NoError(t, err)

	assert.Equal(t, "/query", gotPath)
	assert.Equal(t, "all:sparse attention AND submittedDate:[202001010000 TO 202312312359]", gotQuery["search_query"][0])
	assert.Equal(t, "2", gotQuery["max_results"][0])
	assert.Equal(t, "relevance", gotQuery["sortBy"][0])

	assert.Equal(t, 25, result.TotalResults)
	assert.True(t, result.HasMore)
	assert.Equal(t, 2, result.NextOffset)
	require.Len(t, result.Papers, 2)

	p := result.Papers[0]
	assert.Equal(t, "doi:10.48550/arxiv.2301.12345", p.CanonicalID)
	assert.Equal(t, domain.SourceTypeArXiv, p.Source)
	assert.Equal(t, "2301.12345", p.SourceID)
	assert.Equal(t, "Sparse Attention for Long Documents", p.Title)
	assert.Equal(t, "We propose a sparse attention mechanism.", p.Abstract)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, p.AuthorNames())
	assert.Equal(t, "Analytical Engines Ltd", p.Authors[0].Affiliation)
	assert.Equal(t, 2023, p.PublicationYear)
	assert.Equal(t, "http://arxiv.org/abs/2301.12345v2", p.URL)
	assert.Equal(t, "http://arxiv.org/pdf/2301.12345v2", p.PDFURL)
	assert.Equal(t, "NeurIPS 2023", p.Journal)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, p.Metadata[domain.FieldCategories])
	assert.Nil(t, p.CitationCount)
	assert.True(t, p.OpenAccess)

	old := result.Papers[1]
	assert.Equal(t, "arxiv:hep-th/9901001", old.CanonicalID)
	assert.Equal(t, "https://arxiv.org/abs/hep-th/9901001", old.URL)
	assert.Equal(t, "https://arxiv.org/pdf/hep-th/9901001", old.PDFURL)
}

func TestClient_SearchWithoutDates(t *testing.T) {
	var searchQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		searchQuery = r.URL.Query().Get("search_query")
		_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	})

	result, err := client.Search(context.Background(), papersources.SearchParams{Query: "graphs"})
	require.NoError(t, err)

	assert.Equal(t, "all:graphs", searchQuery)
	assert.Empty(t, result.Papers)
	assert.False(t, result.HasMore)
}

func TestClient_SearchErrors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		client := NewWithHTTPClient(Config{}, papersources.NewHTTPClient(papersources.HTTPClientConfig{}))
		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q"})
		assert.ErrorIs(t, err, domain.ErrSourceDisabled)
	})

	t.Run("bad status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "malformed query", http.StatusBadRequest)
		})
		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q"})

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("malformed xml", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<feed><entry>"))
		})
		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q"})
		assert.ErrorContains(t, err, "decoding response")
	})
}

func TestClient_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		var idList string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			idList = r.URL.Query().Get("id_list")
			_, _ = w.Write([]byte(feedXML))
		})

		paper, err := client.GetByID(context.Background(), "2301.12345")
		require.NoError(t, err)
		assert.Equal(t, "2301.12345", idList)
		assert.Equal(t, "2301.12345", paper.SourceID)
	})

	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
		})

		_, err := client.GetByID(context.Background(), "0000.00000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestExtractArXivID(t *testing.T) {
	tests := map[string]string{
		"http://arxiv.org/abs/2301.12345v1":    "2301.12345",
		"http://arxiv.org/abs/2301.12345":      "2301.12345",
		"http://arxiv.org/abs/hep-th/9901001v3": "hep-th/9901001",
		"https://example.com/abs/1":            "",
		"":                                     "",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, extractArXivID(input), "input %q", input)
	}
}

func TestClient_Identity(t *testing.T) {
	client := New(Config{Enabled: true})
	assert.Equal(t, domain.SourceTypeArXiv, client.SourceType())
	assert.Equal(t, "arXiv", client.Name())
	assert.True(t, client.IsEnabled())
	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
}
