package delivery

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testMessage() Message {
	return Message{
		To:      []string{"owner@example.com"},
		From:    "forms@example.com",
		Subject: "New submission",
		HTML:    "<p>hello</p>",
		Text:    "hello",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{Endpoint: srv.URL, APIKey: "re_test_key"})
	return client, srv
}

func TestSendSuccess(t *testing.T) {
	var gotAuth string
	var gotBody sendRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"msg_1"}`))
	})

	id, err := client.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if id != "msg_1" {
		t.Errorf("message id = %q, want %q", id, "msg_1")
	}
	if gotAuth != "Bearer re_test_key" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if len(gotBody.To) != 1 || gotBody.To[0] != "owner@example.com" {
		t.Errorf("payload to = %v", gotBody.To)
	}
	if gotBody.HTML == "" || gotBody.Text == "" {
		t.Error("payload missing html or text body")
	}
}

func TestSendClassifiesStatusCodes(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantMsg  string
	}{
		{"bad request with message", 400, `{"message":"missing to"}`, KindBadRequest, "missing to"},
		{"bad request empty body", 400, ``, KindBadRequest, "provider rejected the request"},
		{"unauthorized", 401, `{"message":"invalid key"}`, KindUnauthorized, ""},
		{"validation error", 422, `{"message":"invalid from address"}`, KindValidationError, "invalid from address"},
		{"validation error without message", 422, `{"name":"validation_error"}`, KindValidationError, "provider rejected the message content"},
		{"rate limited", 429, `{"message":"slow down"}`, KindRateLimited, ""},
		{"server error", 500, `oops`, KindProviderError, ""},
		{"teapot", 418, ``, KindProviderError, ""},
		{"malformed error body", 400, `not json`, KindMalformedResponse, ""},
		{"malformed success body", 200, `not json`, KindMalformedResponse, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := client.Send(context.Background(), testMessage())
			if err == nil {
				t.Fatal("expected an error")
			}
			de, ok := AsError(err)
			if !ok {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if de.Kind != tc.wantKind {
				t.Errorf("kind = %q, want %q", de.Kind, tc.wantKind)
			}
			if tc.wantMsg != "" && de.Message != tc.wantMsg {
				t.Errorf("message = %q, want %q", de.Message, tc.wantMsg)
			}
		})
	}
}

func TestSendTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	client.httpClient.Timeout = 50 * time.Millisecond

	_, err := client.Send(context.Background(), testMessage())
	de, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if de.Kind != KindTimeout {
		t.Errorf("kind = %q, want %q", de.Kind, KindTimeout)
	}
}

func TestSendConnectionRefused(t *testing.T) {
	// Grab a port with nothing listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := NewClient(Config{Endpoint: "http://" + addr, APIKey: "re_test_key"})

	_, err = client.Send(context.Background(), testMessage())
	de, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if de.Kind != KindNetworkError {
		t.Errorf("kind = %q, want %q", de.Kind, KindNetworkError)
	}
}

func TestSendMissingBodyIsCallerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should never reach the provider")
	})

	msg := testMessage()
	msg.HTML = ""
	msg.Text = ""

	_, err := client.Send(context.Background(), msg)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := AsError(err); ok {
		t.Errorf("precondition violation must not be classified, got %v", err)
	}
}

func TestSendSuccessWithoutID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	id, err := client.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty when provider omits it", id)
	}
}

func TestSendExactlyOneAttempt(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	})

	client.Send(context.Background(), testMessage())
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 (no retries)", attempts)
	}
}
