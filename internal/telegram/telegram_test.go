package telegram

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGetUpdates_ParsesMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getUpdates" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("offset"); got != "42" {
			t.Errorf("expected offset=42, got %q", got)
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":[{"update_id":42,"message":{"chat":{"id":123},"text":"привет","date":1700000000}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	updates, err := c.GetUpdates(42, 0)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 1 || updates[0].Message == nil || updates[0].Message.Text == nil {
		t.Fatalf("unexpected updates: %#v", updates)
	}
	if updates[0].Message.Chat.ID != 123 {
		t.Errorf("unexpected chat id: %d", updates[0].Message.Chat.ID)
	}
	if *updates[0].Message.Text != "привет" {
		t.Errorf("unexpected text: %q", *updates[0].Message.Text)
	}
}

func TestGetUpdates_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":false}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	updates, err := c.GetUpdates(0, 0)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected no updates, got %d", len(updates))
	}
}

func TestSendMessage_APIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	err := c.SendMessage(123, "привет")
	if err == nil {
		t.Fatal("expected error on rejected sendMessage")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("expected status code in error, got %v", err)
	}
}

func TestSendMessage_TruncatesLongText(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendMessage" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	if err := c.SendMessage(123, strings.Repeat("ы", 5000)); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if !strings.Contains(gotBody, `"chat_id":123`) {
		t.Fatalf("expected chat_id in payload, got: %s", gotBody)
	}
	if n := strings.Count(gotBody, "ы"); n != 3900 {
		t.Fatalf("expected text truncated to 3900 runes, got %d", n)
	}
}
