package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/garpdev/form-server/internal/delivery"
	"github.com/garpdev/form-server/internal/ratelimit"
)

func newTestSink() (*Sink, *bytes.Buffer) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewSink(log), &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &record); err != nil {
		t.Fatalf("unmarshal audit record: %v", err)
	}
	return record
}

func TestReceivedTagsAndParams(t *testing.T) {
	sink, buf := newTestSink()

	sink.Received("sub_1", "1.2.3.4", map[string]string{
		"name":    "Alice",
		"message": "hello",
	})

	record := lastRecord(t, buf)
	if record["event"] != EventReceived {
		t.Errorf("event = %v, want %q", record["event"], EventReceived)
	}
	if record["submission_id"] != "sub_1" {
		t.Errorf("submission_id = %v, want sub_1", record["submission_id"])
	}
	if record["client_id"] != "1.2.3.4" {
		t.Errorf("client_id = %v, want 1.2.3.4", record["client_id"])
	}
	params, _ := record["params"].(map[string]any)
	if params["name"] != "Alice" {
		t.Errorf("params = %v, want name Alice", params)
	}
}

func TestReceivedExcludesPasswordFields(t *testing.T) {
	sink, buf := newTestSink()

	sink.Received("sub_1", "1.2.3.4", map[string]string{
		"name":          "Alice",
		"password":      "hunter2",
		"user_password": "hunter3",
	})

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "hunter3") {
		t.Errorf("password field values leaked into the audit log: %s", out)
	}
	params, _ := lastRecord(t, buf)["params"].(map[string]any)
	if _, ok := params["password"]; ok {
		t.Error("password field name present in the param dump")
	}
}

func TestRateLimitedCarriesViolations(t *testing.T) {
	sink, buf := newTestSink()

	sink.RateLimited("sub_1", "1.2.3.4", []ratelimit.Violation{
		{Window: ratelimit.WindowMinute, Count: 5, Limit: 5},
	})

	record := lastRecord(t, buf)
	if record["event"] != EventRateLimited {
		t.Errorf("event = %v, want %q", record["event"], EventRateLimited)
	}
	if !strings.Contains(buf.String(), `"minute"`) {
		t.Errorf("violations missing from record: %s", buf.String())
	}
}

func TestEmailFailedCarriesKind(t *testing.T) {
	sink, buf := newTestSink()

	sink.EmailFailed("sub_1", "1.2.3.4", delivery.KindTimeout, "deadline exceeded")

	record := lastRecord(t, buf)
	if record["event"] != EventEmailFailed {
		t.Errorf("event = %v, want %q", record["event"], EventEmailFailed)
	}
	if record["error_kind"] != string(delivery.KindTimeout) {
		t.Errorf("error_kind = %v, want %q", record["error_kind"], delivery.KindTimeout)
	}
}
