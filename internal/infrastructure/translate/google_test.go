package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-resty/resty/v2"
)

func TestParseTranslation_joinsSegments(t *testing.T) {
	t.Parallel()

	body := `[[["Perfettamente ","Perfectly ",null,null,10],["funzionante","working",null,null,10]],null,"en"]`
	got, err := parseTranslation([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Perfettamente funzionante" {
		t.Fatalf("got %q", got)
	}
}

func TestParseTranslation_rejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{}`, `[]`, `[[]]`, `not json`} {
		if _, err := parseTranslation([]byte(body)); err == nil {
			t.Errorf("parseTranslation(%s) expected error", body)
		}
	}
}

func TestGoogleTranslator_Translate_cachesResult(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/translate_a/single" {
			t.Errorf("path got %s", r.URL.Path)
		}
		if r.URL.Query().Get("tl") != "it" || r.URL.Query().Get("q") != "hello" {
			t.Errorf("query got %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[[["ciao","hello",null,null,1]],null,"en"]`))
	}))
	t.Cleanup(srv.Close)

	g := newGoogleTranslator(resty.New(), srv.URL)

	for i := 0; i < 2; i++ {
		got, err := g.Translate(context.Background(), "hello", "it")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ciao" {
			t.Fatalf("got %q, want ciao", got)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("server hits got %d, want 1", hits.Load())
	}
}

func TestGoogleTranslator_Translate_errorOnStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	g := newGoogleTranslator(resty.New(), srv.URL)
	if _, err := g.Translate(context.Background(), "hello", "it"); err == nil {
		t.Fatalf("expected error")
	}
}
