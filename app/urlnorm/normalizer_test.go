package urlnorm

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"utm source", "https://example.com/a?utm_source=rss", "https://example.com/a"},
		{"all tracking keys", "https://example.com/a?source=x&utm_medium=m&utm_campaign=c&utm_content=c&utm_term=t&fbclid=f&gclid=g&ref=r&mc_cid=1&mc_eid=2&_ga=3&campaign_id=4", "https://example.com/a"},
		{"unknown utm key", "https://example.com/a?utm_whatever=1", "https://example.com/a"},
		{"case insensitive key", "https://example.com/a?REF=hn&Utm_Source=x", "https://example.com/a"},
		{"keeps other params", "https://example.com/a?id=5&utm_source=rss", "https://example.com/a?id=5"},
		{"multi valued keys", "https://example.com/a?b=2&a=1&a=3&fbclid=x", "https://example.com/a?a=1&a=3&b=2"},
		{"fragment dropped", "https://example.com/post#comments", "https://example.com/post"},
		{"trailing slash", "https://example.com/blog/", "https://example.com/blog"},
		{"root slash", "https://example.com/", "https://example.com"},
		{"slash before query kept", "https://example.com/a/?id=5", "https://example.com/a/?id=5"},
		{"only tracking leaves no question mark", "https://example.com/a/?utm_source=x#top", "https://example.com/a"},
		{"plain", "https://example.com/a", "https://example.com/a"},
		{"bad escape still drops tracking", "https://example.com/?q=%zz&utm_source=rss", "https://example.com"},
		{"bad escape keeps valid pairs", "https://example.com/a?id=5&q=%zz&utm_source=rss", "https://example.com/a?id=5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
			if again := Normalize(got); again != got {
				t.Errorf("Expected normalization to be idempotent, got %q then %q", got, again)
			}
		})
	}
}

func TestNormalize_MalformedReturnsInput(t *testing.T) {
	inputs := []string{
		"http://[::1",
		"http://example.com:port/a",
	}

	for _, in := range inputs {
		if got := Normalize(in); got != in {
			t.Errorf("Expected malformed URL %q to be returned unchanged, got %q", in, got)
		}
		if _, err := Canonical(in); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Expected ErrInvalidURL for %q, got %v", in, err)
		}
	}
}

func TestIsTrackingParam(t *testing.T) {
	for _, name := range []string{"utm_source", "UTM_TERM", "fbclid", "_ga", "source"} {
		if !IsTrackingParam(name) {
			t.Errorf("Expected %s to be a tracking param", name)
		}
	}
	for _, name := range []string{"id", "page", "q", "sources"} {
		if IsTrackingParam(name) {
			t.Errorf("Expected %s not to be a tracking param", name)
		}
	}
}
