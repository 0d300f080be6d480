// internal/retraction/pubmed_test.go
package retraction

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"predcheck/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPubMedTestClient(t *testing.T, record string, pmids ...string) *PubMedClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "esearch"):
			ids := make([]string, len(pmids))
			for i, p := range pmids {
				ids[i] = fmt.Sprintf("%q", p)
			}
			fmt.Fprintf(w, `{"esearchresult": {"idlist": [%s]}}`, strings.Join(ids, ","))
		case strings.Contains(r.URL.Path, "efetch"):
			fmt.Fprint(w, record)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return NewPubMedClient(logger.NewTestLogger(t), WithPubMedBaseURL(srv.URL))
}

func TestPubMedCheck_RetractedPublicationType(t *testing.T) {
	record := `<PubmedArticle><PublicationTypeList><PublicationType>Retracted Publication</PublicationType></PublicationTypeList></PubmedArticle>`
	c := newPubMedTestClient(t, record, "12345")

	status, err := c.Check(context.Background(), "10.1234/abc")
	require.NoError(t, err)
	assert.True(t, status.IsRetracted)
	assert.Equal(t, []string{"pubmed"}, status.Sources)
	assert.Contains(t, status.Reason, "Retracted Publication")
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/12345/", status.NoticeLink)
}

func TestPubMedCheck_RetractionInComment(t *testing.T) {
	record := `<PubmedArticle><CommentsCorrectionsList>` +
		`<CommentsCorrections RefType="RetractionIn"><RefSource>J Clin Invest</RefSource><PMID Version="1">67890</PMID></CommentsCorrections>` +
		`</CommentsCorrectionsList></PubmedArticle>`
	c := newPubMedTestClient(t, record, "12345")

	status, err := c.Check(context.Background(), "10.1234/abc")
	require.NoError(t, err)
	assert.True(t, status.IsRetracted)
	assert.Equal(t, "PMID: 67890", status.Notice)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/67890/", status.NoticeLink)
}

func TestPubMedCheck_NotIndexed(t *testing.T) {
	c := newPubMedTestClient(t, "")

	status, err := c.Check(context.Background(), "10.1234/obscure")
	require.NoError(t, err)
	assert.False(t, status.IsRetracted)
	assert.Empty(t, status.Sources)
}

func TestPubMedCheck_CleanRecord(t *testing.T) {
	record := `<PubmedArticle><PublicationTypeList><PublicationType>Journal Article</PublicationType></PublicationTypeList></PubmedArticle>`
	c := newPubMedTestClient(t, record, "12345")

	status, err := c.Check(context.Background(), "10.1234/abc")
	require.NoError(t, err)
	assert.False(t, status.IsRetracted)
}
