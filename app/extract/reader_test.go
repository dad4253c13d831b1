package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-shiori/go-readability"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
	<title>Scaling Distributed Systems</title>
	<meta property="og:image" content="https://cdn.example.com/hero.jpg">
</head>
<body>
	<header><nav><a href="/">Home</a><a href="/about">About</a></nav></header>
	<main>
		<article>
			<h1>Scaling Distributed Systems</h1>
			<p>Scaling distributed systems is mostly about understanding where state lives and how it moves between machines. Every design decision trades latency against consistency in some way.</p>
			<p>In this article we walk through partitioning, replication and the failure modes that appear once a cluster grows beyond a handful of nodes. Each section builds on the previous one.</p>
			<p><img src="/images/diagram.png" alt="Diagram"> The diagram above shows a typical layout with three replicas per partition and a coordinator that routes requests to the right shard.</p>
			<p>Finally we look at operational concerns such as rolling upgrades, backpressure and observability, which decide whether the system stays healthy in production over the long run.</p>
		</article>
	</main>
	<footer><p>Copyright 2024</p></footer>
</body>
</html>`

func newTestReader(client HTTPClient) *Reader {
	return NewReader(NewPageFetcher(client), NewCleaner(DefaultCleanerConfig()), 5*time.Second)
}

func TestReader_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage)
	}))
	defer server.Close()

	reader := newTestReader(server.Client())

	got, err := reader.Extract(context.Background(), server.URL+"/posts/scaling")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got.FeaturedImage != "https://cdn.example.com/hero.jpg" {
		t.Errorf("Expected featured image from og:image, got %q", got.FeaturedImage)
	}

	if !strings.HasPrefix(got.HTML, `<figure class="featured-image"><img src="https://cdn.example.com/hero.jpg"`) {
		t.Errorf("Expected featured figure at the start of the content, got:\n%s", got.HTML)
	}

	if !strings.Contains(got.HTML, "where state lives") {
		t.Errorf("Expected article paragraphs in cleaned HTML")
	}

	if strings.Contains(got.HTML, "Copyright 2024") {
		t.Errorf("Expected footer to be removed")
	}

	if strings.Contains(got.HTML, `src="/images/diagram.png"`) {
		t.Errorf("Expected relative image source to be rewritten, got:\n%s", got.HTML)
	}

	if !strings.Contains(got.Text, "rolling upgrades") {
		t.Errorf("Expected plain text rendering, got %q", got.Text)
	}
	if strings.Contains(got.Text, "<p>") {
		t.Errorf("Expected plain text without markup")
	}
}

func TestReader_Extract_FetchFailure(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	reader := newTestReader(server.Client())

	got, err := reader.Extract(context.Background(), server.URL+"/blocked")
	if err != nil {
		t.Fatalf("Expected failed fetch to degrade without error, got %v", err)
	}
	if got != (Extraction{}) {
		t.Errorf("Expected empty extraction on failure, got %+v", got)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected a single page request, got %d", hits.Load())
	}
}

func TestReader_Extract_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestReader(server.Client()).Extract(ctx, server.URL+"/posts/scaling")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestReader_Extract_TextSurvivesReaderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage)
	}))
	defer server.Close()

	reader := newTestReader(server.Client())
	reader.content = func([]byte, *url.URL) (readability.Article, error) {
		return readability.Article{}, ErrEmptyContent
	}

	got, err := reader.Extract(context.Background(), server.URL+"/posts/scaling")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.HTML != "" {
		t.Errorf("Expected empty HTML when readability finds nothing, got %q", got.HTML)
	}
	if !strings.Contains(got.Text, "rolling upgrades") {
		t.Errorf("Expected plain text from the independent extractor, got %q", got.Text)
	}
	if got.FeaturedImage != "https://cdn.example.com/hero.jpg" {
		t.Errorf("Expected featured image to survive, got %q", got.FeaturedImage)
	}
}

func TestReader_Extract_HTMLSurvivesTextFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage)
	}))
	defer server.Close()

	reader := newTestReader(server.Client())
	reader.text = func([]byte, *url.URL) (string, error) {
		return "", ErrEmptyContent
	}

	got, err := reader.Extract(context.Background(), server.URL+"/posts/scaling")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Text != "" {
		t.Errorf("Expected empty text, got %q", got.Text)
	}
	if !strings.Contains(got.HTML, "where state lives") {
		t.Errorf("Expected reader HTML despite text failure, got %q", got.HTML)
	}
}

type rewriteTransport struct {
	target string
	paths  []string
}

// RoundTrip sends every request to the test server while recording the requested URL.
func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.paths = append(rt.paths, req.URL.String())
	clone := req.Clone(req.Context())
	clone.URL.Scheme = "http"
	clone.URL.Host = rt.target
	clone.Host = rt.target
	return http.DefaultTransport.RoundTrip(clone)
}

func TestReader_Extract_ArxivUsesHTMLRendering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage)
	}))
	defer server.Close()

	transport := &rewriteTransport{target: strings.TrimPrefix(server.URL, "http://")}
	reader := newTestReader(&http.Client{Transport: transport})

	got, err := reader.Extract(context.Background(), "https://arxiv.org/abs/2401.12345")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(transport.paths) != 2 {
		t.Fatalf("Expected HTML rendering and original page requests, got %v", transport.paths)
	}
	if transport.paths[0] != "https://arxiv.org/html/2401.12345v1" {
		t.Errorf("Expected HTML rendering to be fetched first, got %s", transport.paths[0])
	}
	if transport.paths[1] != "https://arxiv.org/abs/2401.12345" {
		t.Errorf("Expected plain text from the original URL, got %s", transport.paths[1])
	}
	if got.Text == "" {
		t.Errorf("Expected plain text from original URL")
	}
}
