package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All
 You Need</title>
    <summary>  The dominant sequence transduction models are based on
complex recurrent networks.  </summary>
    <published>2017-06-12T17:57:34Z</published>
    <updated>2023-08-02T00:41:18Z</updated>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <category term="cs.CL"/>
    <category term="cs.LG"/>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
  </entry>
</feed>`

func TestSearch_ParsesFeed(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	papers, err := c.Search(context.Background(), SearchParams{Query: "attention", Category: "cs.CL"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotQuery != "cat:cs.CL AND (attention)" {
		t.Errorf("search_query = %q", gotQuery)
	}
	if len(papers) != 1 {
		t.Fatalf("papers = %d, want 1", len(papers))
	}

	p := papers[0]
	if p.ID != "1706.03762" {
		t.Errorf("ID = %q, want 1706.03762", p.ID)
	}
	if p.Title != "Attention Is All  You Need" {
		t.Errorf("Title = %q", p.Title)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Ashish Vaswani" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if len(p.Categories) != 2 {
		t.Errorf("Categories = %v", p.Categories)
	}
	if p.PDFURL != "http://arxiv.org/pdf/1706.03762v7" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	if p.Published.Year() != 2017 {
		t.Errorf("Published = %v", p.Published)
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	c := NewClient()
	if _, err := c.Search(context.Background(), SearchParams{}); err == nil {
		t.Error("empty query should fail")
	}
}

func TestSearch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithMaxRetries(5))
	papers, err := c.Search(context.Background(), SearchParams{Query: "attention"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(papers) != 1 {
		t.Errorf("papers = %d, want 1", len(papers))
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestSearch_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithMaxRetries(5))
	if _, err := c.Search(context.Background(), SearchParams{Query: "attention"}); err == nil {
		t.Fatal("want error for http 400")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retries on 4xx)", calls.Load())
	}
}

func TestPaper_FetchesByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id_list"); got != "1706.03762" {
			t.Errorf("id_list = %q", got)
		}
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	paper, err := c.Paper(context.Background(), "1706.03762")
	if err != nil {
		t.Fatalf("Paper() error = %v", err)
	}
	if paper.ID != "1706.03762" {
		t.Errorf("ID = %q", paper.ID)
	}
}

func TestPaper_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	if _, err := c.Paper(context.Background(), "9999.00000"); err == nil {
		t.Error("missing paper should fail")
	}
}

func TestStripVersion(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1706.03762v7", "1706.03762"},
		{"1706.03762", "1706.03762"},
		{"solv-int/9701001", "solv-int/9701001"},
		{"solv-int/9701001v2", "solv-int/9701001"},
		{"hep-th/9901001v10", "hep-th/9901001"},
		{"v1", "v1"},
	}
	for _, c := range cases {
		if got := stripVersion(c.in); got != c.want {
			t.Errorf("stripVersion(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
