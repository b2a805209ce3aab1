package ftsload_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	ftsload "github.com/DataFrosch/scraper-fts"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(f roundTripperFunc) *http.Client {
	return &http.Client{Transport: f}
}

func TestSlackNotifier(t *testing.T) {
	var sent struct {
		Channel string `json:"channel"`
		Text    string `json:"text"`
	}

	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(body, &sent); err != nil {
			t.Fatal(err)
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(`{"ok":true}`)),
			Header:     http.Header{},
		}, nil
	})

	n := &ftsload.SlackNotifier{
		Channel:    "#channel",
		Token:      "token",
		IconEmoji:  ":emoji:",
		Username:   "username",
		HTTPClient: client,
	}

	r := &ftsload.Result{
		Stats: &ftsload.Stats{
			RunID:       "run-1",
			RowsLoaded:  12345,
			Batches:     3,
			YearsLoaded: 18,
			Duration:    2 * time.Minute,
		},
	}

	if err := n.Notify(context.Background(), r); err != nil {
		t.Errorf("unexpected slack.Notify error: %s", err)
	}

	if sent.Channel != "#channel" {
		t.Errorf("channel should be #channel, but %q", sent.Channel)
	}
	if !strings.Contains(sent.Text, "12345 rows") {
		t.Errorf("summary should mention the row count: %q", sent.Text)
	}
}

func TestSlackNotifier_failedRun(t *testing.T) {
	var text string

	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		var m struct {
			Text string `json:"text"`
		}
		json.Unmarshal(body, &m)
		text = m.Text

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(`{"ok":true}`)),
			Header:     http.Header{},
		}, nil
	})

	n := &ftsload.SlackNotifier{Channel: "#channel", Token: "token", HTTPClient: client}

	r := &ftsload.Result{
		Stats: &ftsload.Stats{RunID: "run-2"},
		Error: errors.New("load batch 3: connection lost"),
	}

	if err := n.Notify(context.Background(), r); err != nil {
		t.Errorf("unexpected slack.Notify error: %s", err)
	}
	if !strings.Contains(text, "failed") || !strings.Contains(text, "connection lost") {
		t.Errorf("failure summary should mention the error: %q", text)
	}
}

func TestSlackNotifier_apiError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(`{"ok":false,"error":"channel_not_found"}`)),
			Header:     http.Header{},
		}, nil
	})

	n := &ftsload.SlackNotifier{Channel: "#missing", Token: "token", HTTPClient: client}
	r := &ftsload.Result{Stats: &ftsload.Stats{RunID: "run-3"}}

	err := n.Notify(context.Background(), r)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("error should carry the slack error code: %v", err)
	}
}
