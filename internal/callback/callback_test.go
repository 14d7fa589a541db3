package callback

import (
	"testing"
)

func TestDecode_Notifications(t *testing.T) {
	body := []byte(`{"notifications":[{"ep":"node1","path":"/3/0/1","payload":"SGVsbG8="}]}`)

	batch, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if batch.Kind != KindNotifications {
		t.Errorf("Kind = %q, want %q", batch.Kind, KindNotifications)
	}
	if batch.SourceKey != "notifications" {
		t.Errorf("SourceKey = %q, want %q", batch.SourceKey, "notifications")
	}
	if batch.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", batch.Len())
	}

	n := batch.Notifications[0]
	if n.Endpoint != "node1" {
		t.Errorf("Endpoint = %q, want %q", n.Endpoint, "node1")
	}
	if n.Path != "/3/0/1" {
		t.Errorf("Path = %q, want %q", n.Path, "/3/0/1")
	}
	if n.Payload != "SGVsbG8=" {
		t.Errorf("Payload = %q, want %q", n.Payload, "SGVsbG8=")
	}
}

func TestDecode_Registrations(t *testing.T) {
	body := []byte(`{"registrations":[{"ep":"node2","original-ep":"node2-orig","ept":"sensor","resources":[{"rt":"temp","path":"/3303/0"}]}]}`)

	batch, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if batch.Kind != KindRegistrations {
		t.Errorf("Kind = %q, want %q", batch.Kind, KindRegistrations)
	}
	if batch.SourceKey != "registrations" {
		t.Errorf("SourceKey = %q, want %q", batch.SourceKey, "registrations")
	}
	if batch.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", batch.Len())
	}

	r := batch.Registrations[0]
	if r.Endpoint != "node2" {
		t.Errorf("Endpoint = %q, want %q", r.Endpoint, "node2")
	}
	if r.OriginalEndpoint != "node2-orig" {
		t.Errorf("OriginalEndpoint = %q, want %q", r.OriginalEndpoint, "node2-orig")
	}
	if r.EndpointType != "sensor" {
		t.Errorf("EndpointType = %q, want %q", r.EndpointType, "sensor")
	}
	if len(r.Resources) == 0 {
		t.Error("Resources should carry the raw JSON")
	}
}

func TestDecode_RegUpdates(t *testing.T) {
	body := []byte(`{"reg-updates":[{"ep":"node3","original-ep":"node3","ept":"gateway"}]}`)

	batch, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if batch.Kind != KindRegistrations {
		t.Errorf("Kind = %q, want %q", batch.Kind, KindRegistrations)
	}
	if batch.SourceKey != "reg-updates" {
		t.Errorf("SourceKey = %q, want %q", batch.SourceKey, "reg-updates")
	}
	if batch.Len() != 1 {
		t.Errorf("Len() = %d, want 1", batch.Len())
	}
}

func TestDecode_Expirations(t *testing.T) {
	body := []byte(`{"registrations-expired":["node1","node2"]}`)

	batch, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if batch.Kind != KindExpirations {
		t.Errorf("Kind = %q, want %q", batch.Kind, KindExpirations)
	}
	if batch.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", batch.Len())
	}
	if batch.Expirations[0] != "node1" || batch.Expirations[1] != "node2" {
		t.Errorf("Expirations = %v, want [node1 node2]", batch.Expirations)
	}
}

func TestDecode_PriorityOrder(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantKind  Kind
		wantKey   string
		wantCount int
	}{
		{
			name:      "registrations wins over reg-updates",
			body:      `{"registrations":[{"ep":"a"}],"reg-updates":[{"ep":"b"},{"ep":"c"}]}`,
			wantKind:  KindRegistrations,
			wantKey:   "registrations",
			wantCount: 1,
		},
		{
			name:      "notifications wins over everything",
			body:      `{"registrations-expired":["x"],"notifications":[{"ep":"a","path":"/1","payload":""}],"registrations":[{"ep":"b"}]}`,
			wantKind:  KindNotifications,
			wantKey:   "notifications",
			wantCount: 1,
		},
		{
			name:      "reg-updates used when registrations absent",
			body:      `{"reg-updates":[{"ep":"b"}],"registrations-expired":["x"]}`,
			wantKind:  KindRegistrations,
			wantKey:   "reg-updates",
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := Decode([]byte(tt.body))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if batch.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", batch.Kind, tt.wantKind)
			}
			if batch.SourceKey != tt.wantKey {
				t.Errorf("SourceKey = %q, want %q", batch.SourceKey, tt.wantKey)
			}
			if batch.Len() != tt.wantCount {
				t.Errorf("Len() = %d, want %d", batch.Len(), tt.wantCount)
			}
		})
	}
}

func TestDecode_Unknown(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "unrelated keys", body: `{"async-responses":[{"id":"1"}]}`},
		{name: "top-level array", body: `[1,2,3]`},
		{name: "top-level string", body: `"hello"`},
		{name: "recognized key with null value", body: `{"registrations":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := Decode([]byte(tt.body))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if batch.Kind != KindUnknown {
				t.Errorf("Kind = %q, want %q", batch.Kind, KindUnknown)
			}
			if batch.Len() != 0 {
				t.Errorf("Len() = %d, want 0", batch.Len())
			}
		})
	}
}

func TestDecode_Idempotent(t *testing.T) {
	body := []byte(`{"registrations":[{"ep":"a"}],"reg-updates":[{"ep":"b"}]}`)

	first, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	second, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if first.Kind != second.Kind || first.SourceKey != second.SourceKey {
		t.Errorf("classification not stable: (%q,%q) vs (%q,%q)",
			first.Kind, first.SourceKey, second.Kind, second.SourceKey)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"notifications":[`))
	if err == nil {
		t.Error("Decode() should fail on truncated JSON")
	}
}

func TestDecode_WrongTypedItemKeepsBatch(t *testing.T) {
	// One broken element must not reject the whole delivery; it degrades to
	// a zero-valued item.
	body := []byte(`{"notifications":[{"ep":"good","path":"/1","payload":"QQ=="},42]}`)

	batch, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if batch.Kind != KindNotifications {
		t.Fatalf("Kind = %q, want %q", batch.Kind, KindNotifications)
	}
	if batch.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", batch.Len())
	}
	if batch.Notifications[0].Endpoint != "good" {
		t.Errorf("first item lost: %+v", batch.Notifications[0])
	}
	if batch.Notifications[1].Endpoint != "" {
		t.Errorf("broken item should be zero-valued, got %+v", batch.Notifications[1])
	}
}

func TestDecode_MissingFieldsAreZero(t *testing.T) {
	body := []byte(`{"registrations":[{"ep":"node9"}]}`)

	batch, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	r := batch.Registrations[0]
	if r.OriginalEndpoint != "" || r.EndpointType != "" {
		t.Errorf("absent fields should be empty, got %+v", r)
	}
	if r.Resources != nil {
		t.Errorf("absent resources should be nil, got %s", r.Resources)
	}
}
