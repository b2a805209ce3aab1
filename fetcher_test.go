package ftsload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestHTTPFetcher(t *testing.T) {
	body := []byte("workbook bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request should carry a User-Agent header")
		}
		w.Write(body)
	}))
	defer srv.Close()

	f := newHTTPFetcher(srv.Client())
	ref := DatasetReference{Year: 2007, URL: srv.URL + "/2007_FTS_dataset_en.xlsx"}

	r, closer, err := f.fetch(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(body) {
		t.Errorf("expected body %q, got %q", body, got)
	}

	name := r.(*os.File).Name()
	closer()
	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Errorf("temp file %s should be removed by the closer", name)
	}
}

func TestHTTPFetcher_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newHTTPFetcher(srv.Client())
	ref := DatasetReference{Year: 2035, URL: srv.URL + "/2035_FTS_dataset_en.xlsx"}

	_, _, err := f.fetch(context.Background(), ref)
	if err == nil {
		t.Fatal("expected error")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Year != 2035 {
		t.Errorf("FetchError.Year should be 2035, but %d", fe.Year)
	}
	if fe.Status != http.StatusNotFound {
		t.Errorf("FetchError.Status should be 404, but %d", fe.Status)
	}
}

func TestHTTPFetcher_emptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := newHTTPFetcher(srv.Client())
	ref := DatasetReference{Year: 2007, URL: srv.URL + "/2007_FTS_dataset_en.xlsx"}

	if _, _, err := f.fetch(context.Background(), ref); err == nil {
		t.Fatal("expected error for an empty body")
	}
}

func TestHTTPFetcher_transportError(t *testing.T) {
	f := newHTTPFetcher(nil)
	ref := DatasetReference{Year: 2007, URL: "http://127.0.0.1:1/nope.xlsx"}

	_, _, err := f.fetch(context.Background(), ref)
	if err == nil {
		t.Fatal("expected error")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
}
