package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendTemplate(t *testing.T) {
	var captured sendEmailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/smtp/email" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	err := client.SendTemplate(context.Background(), "user@example.com", "", 7, map[string]interface{}{
		"SUN_SIGN": "Leo",
		"THEME":    "Career & Money",
	})
	if err != nil {
		t.Fatalf("SendTemplate: %v", err)
	}

	if captured.TemplateID != 7 {
		t.Errorf("expected template 7, got %d", captured.TemplateID)
	}
	if len(captured.To) != 1 || captured.To[0].Email != "user@example.com" {
		t.Errorf("unexpected recipient %+v", captured.To)
	}
	// Name defaults to the address for the template greeting.
	if captured.To[0].Name != "user@example.com" {
		t.Errorf("expected defaulted name, got %q", captured.To[0].Name)
	}
	if captured.Params["SUN_SIGN"] != "Leo" {
		t.Errorf("params not forwarded: %+v", captured.Params)
	}
}

func TestSendTemplateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	err := client.SendTemplate(context.Background(), "user@example.com", "Ada", 7, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected APIError 400, got %v", err)
	}
}

func TestSendHTMLCarriesSender(t *testing.T) {
	var captured sendEmailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", WithSender("hello@palmcosmic.app", "Cosmic Soul"))
	if err := client.SendHTML(context.Background(), "user@example.com", "Ada", "Your day ahead", "<p>hi</p>"); err != nil {
		t.Fatal(err)
	}

	if captured.Sender == nil || captured.Sender.Name != "Cosmic Soul" {
		t.Fatalf("expected configured sender, got %+v", captured.Sender)
	}
	if captured.Subject != "Your day ahead" || captured.HTMLContent != "<p>hi</p>" {
		t.Fatalf("unexpected content %+v", captured)
	}
}

func TestRenderHTML(t *testing.T) {
	out := renderHTML(map[string]interface{}{
		"THEME":       "Health & Wellness",
		"THEME_EMOJI": "🌿",
		"FIRSTNAME":   "Ada",
		"SUN_SIGN":    "Leo",
		"DATE":        "Monday, March 16, 2026",
		"HOROSCOPE":   "**Overview**\n\nA steady day.",
		"APP_URL":     "https://palmcosmic.app",
	})

	for _, want := range []string{"Ada", "Leo", "Health &amp; Wellness", "A steady day.", "https://palmcosmic.app"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered email missing %q", want)
		}
	}
}
