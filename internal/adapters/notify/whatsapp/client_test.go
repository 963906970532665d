package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Deliver(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.123"}]}`))
	}))
	defer ts.Close()

	c, err := New(ts.URL, "secret-token", "phone-42", 2*time.Second)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	id, err := c.Deliver(context.Background(), "525512345678", "hola")
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if id != "wamid.123" {
		t.Fatalf("expected wamid.123, got %q", id)
	}
	if gotPath != "/phone-42/messages" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["messaging_product"] != "whatsapp" || gotBody["to"] != "525512345678" {
		t.Fatalf("unexpected payload: %#v", gotBody)
	}
	text, _ := gotBody["text"].(map[string]any)
	if text["body"] != "hola" {
		t.Fatalf("unexpected text body: %#v", gotBody["text"])
	}
}

func TestClient_Deliver_ProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid token"}}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	c, err := New(ts.URL, "bad-token", "phone-42", 2*time.Second)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, err := c.Deliver(context.Background(), "525512345678", "hola"); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New("https://graph.facebook.com/v20.0", "", "phone-42", time.Second); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := New("https://graph.facebook.com/v20.0", "token", " ", time.Second); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
