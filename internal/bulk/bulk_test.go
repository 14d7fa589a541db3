package bulk

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicepulse/devicepulse/internal/callback"
)

var testClock = func() time.Time {
	return time.Date(2016, 1, 1, 12, 0, 0, 0, time.UTC)
}

func testBuilder() *Builder {
	b := NewBuilder(DefaultIndices())
	b.now = testClock
	return b
}

// payloadLines splits an NDJSON payload into its lines, requiring the final
// trailing newline.
func payloadLines(t *testing.T, payload []byte) [][]byte {
	t.Helper()
	if len(payload) == 0 {
		return nil
	}
	require.Equal(t, byte('\n'), payload[len(payload)-1], "payload must end with a newline")
	return bytes.Split(payload[:len(payload)-1], []byte("\n"))
}

func decodeLine(t *testing.T, line []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &m))
	return m
}

func TestFromNotifications(t *testing.T) {
	b := testBuilder()

	records := b.FromNotifications([]callback.Notification{
		{Endpoint: "node1", Path: "/3/0/1", Payload: "SGVsbG8="},
	})

	require.Len(t, records, 1)
	assert.Equal(t, "notifications", records[0].Index)

	payload, err := EncodeNDJSON(records)
	require.NoError(t, err)

	lines := payloadLines(t, payload)
	require.Len(t, lines, 2)

	assert.JSONEq(t, `{"index":{"_index":"notifications","_type":"_doc"}}`, string(lines[0]))
	assert.JSONEq(t,
		`{"time":"2016-01-01T12:00:00.000Z","endpoint":"node1","path":"/3/0/1","value":"Hello"}`,
		string(lines[1]))
}

func TestFromNotifications_LineLaw(t *testing.T) {
	b := testBuilder()

	items := []callback.Notification{
		{Endpoint: "a", Path: "/1", Payload: "QQ=="},
		{Endpoint: "b", Path: "/2", Payload: "Qg=="},
		{Endpoint: "c", Path: "/3", Payload: "Qw=="},
	}

	payload, err := EncodeNDJSON(b.FromNotifications(items))
	require.NoError(t, err)

	lines := payloadLines(t, payload)
	require.Len(t, lines, 2*len(items))

	// Alternating action/document pairs, input order preserved.
	wantValues := []string{"A", "B", "C"}
	for i := 0; i < len(lines); i += 2 {
		action := decodeLine(t, lines[i])
		require.Contains(t, action, "index")

		doc := decodeLine(t, lines[i+1])
		assert.Equal(t, items[i/2].Endpoint, doc["endpoint"])
		assert.Equal(t, wantValues[i/2], doc["value"])
	}
}

func TestFromRegistrations(t *testing.T) {
	b := testBuilder()

	records := b.FromRegistrations([]callback.Registration{
		{
			Endpoint:         "node2",
			OriginalEndpoint: "node2-orig",
			EndpointType:     "sensor",
			Resources:        json.RawMessage(`[{"rt":"temp","path":"/3303/0"}]`),
		},
	})

	require.Len(t, records, 2, "each registration emits a device snapshot and a liveness marker")
	assert.Equal(t, "devices", records[0].Index)
	assert.Equal(t, "registrations", records[1].Index)

	payload, err := EncodeNDJSON(records)
	require.NoError(t, err)

	lines := payloadLines(t, payload)
	require.Len(t, lines, 4)

	deviceAction := decodeLine(t, lines[0])["index"].(map[string]interface{})
	assert.Equal(t, "devices", deviceAction["_index"])
	assert.Equal(t, "_doc", deviceAction["_type"])

	device := decodeLine(t, lines[1])
	assert.Equal(t, "node2", device["endpoint"])
	assert.Equal(t, "node2-orig", device["original-ep"])
	assert.Equal(t, "sensor", device["ept"])
	assert.Equal(t, "2016-01-01T12:00:00.000Z", device["time"])

	// resources is a string-encoded JSON blob, not a nested object
	resources, ok := device["resources"].(string)
	require.True(t, ok, "resources must be stored as a string")
	assert.Equal(t, `[{"rt":"temp","path":"/3303/0"}]`, resources)

	liveness := decodeLine(t, lines[3])
	assert.Equal(t, "node2", liveness["endpoint"])
	assert.Equal(t, float64(1), liveness["value"])
}

func TestFromRegistrations_LineLaw(t *testing.T) {
	b := testBuilder()

	items := []callback.Registration{
		{Endpoint: "a"}, {Endpoint: "b"}, {Endpoint: "c"},
	}

	payload, err := EncodeNDJSON(b.FromRegistrations(items))
	require.NoError(t, err)

	lines := payloadLines(t, payload)
	require.Len(t, lines, 4*len(items))

	// Per item: devices pair then registrations pair.
	for i, item := range items {
		base := i * 4
		devAction := decodeLine(t, lines[base])["index"].(map[string]interface{})
		assert.Equal(t, "devices", devAction["_index"])

		regAction := decodeLine(t, lines[base+2])["index"].(map[string]interface{})
		assert.Equal(t, "registrations", regAction["_index"])

		regDoc := decodeLine(t, lines[base+3])
		assert.Equal(t, item.Endpoint, regDoc["endpoint"])
		assert.Equal(t, float64(1), regDoc["value"])
	}
}

func TestFromRegistrations_AbsentFields(t *testing.T) {
	b := testBuilder()

	payload, err := EncodeNDJSON(b.FromRegistrations([]callback.Registration{
		{Endpoint: "bare"},
	}))
	require.NoError(t, err)

	lines := payloadLines(t, payload)
	device := decodeLine(t, lines[1])

	assert.Equal(t, "", device["original-ep"])
	assert.Equal(t, "", device["ept"])
	assert.Equal(t, "null", device["resources"], "absent resources serialize as the string null")
}

func TestFromExpirations(t *testing.T) {
	b := testBuilder()

	records := b.FromExpirations([]string{"node1", "node2"})
	require.Len(t, records, 2)

	payload, err := EncodeNDJSON(records)
	require.NoError(t, err)

	lines := payloadLines(t, payload)
	require.Len(t, lines, 4)

	for i, ep := range []string{"node1", "node2"} {
		action := decodeLine(t, lines[i*2])["index"].(map[string]interface{})
		assert.Equal(t, "registrations", action["_index"])

		doc := decodeLine(t, lines[i*2+1])
		assert.Equal(t, ep, doc["endpoint"])
		assert.Equal(t, float64(0), doc["value"])
		assert.Equal(t, "2016-01-01T12:00:00.000Z", doc["time"])
	}
}

func TestFromBatch(t *testing.T) {
	b := testBuilder()

	tests := []struct {
		name        string
		batch       *callback.Batch
		wantRecords int
		wantIndex   string
	}{
		{
			name: "notifications",
			batch: &callback.Batch{
				Kind:          callback.KindNotifications,
				Notifications: []callback.Notification{{Endpoint: "n"}},
			},
			wantRecords: 1,
			wantIndex:   "notifications",
		},
		{
			name: "registrations",
			batch: &callback.Batch{
				Kind:          callback.KindRegistrations,
				Registrations: []callback.Registration{{Endpoint: "r"}},
			},
			wantRecords: 2,
			wantIndex:   "devices",
		},
		{
			name: "expirations",
			batch: &callback.Batch{
				Kind:        callback.KindExpirations,
				Expirations: []string{"e"},
			},
			wantRecords: 1,
			wantIndex:   "registrations",
		},
		{
			name:        "unknown yields nothing",
			batch:       &callback.Batch{Kind: callback.KindUnknown},
			wantRecords: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := b.FromBatch(tt.batch)
			require.Len(t, records, tt.wantRecords)
			if tt.wantRecords > 0 {
				assert.Equal(t, tt.wantIndex, records[0].Index)
			}
		})
	}
}

func TestEncodeNDJSON_Empty(t *testing.T) {
	payload, err := EncodeNDJSON(nil)
	require.NoError(t, err)
	assert.Empty(t, payload)

	payload, err = EncodeNDJSON([]Record{})
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestNewBuilder_CustomIndices(t *testing.T) {
	b := NewBuilder(Indices{
		Notifications: "notif-v2",
		Devices:       "devices-v2",
		Registrations: "presence-v2",
	})
	b.now = testClock

	records := b.FromRegistrations([]callback.Registration{{Endpoint: "x"}})
	require.Len(t, records, 2)
	assert.Equal(t, "devices-v2", records[0].Index)
	assert.Equal(t, "presence-v2", records[1].Index)
}

func TestNewBuilder_EmptyNamesFallBack(t *testing.T) {
	b := NewBuilder(Indices{})
	assert.Equal(t, DefaultIndices(), b.indices)
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "standard padded", payload: "SGVsbG8=", want: "Hello"},
		{name: "unpadded", payload: "SGVsbG8", want: "Hello"},
		{name: "empty", payload: "", want: ""},
		{name: "non-ascii bytes", payload: "w6k=", want: "é"},
		{name: "undecodable collapses to empty", payload: "!!!not-base64!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodePayload(tt.payload))
		})
	}
}

func TestTimestampIsTransformationTime(t *testing.T) {
	b := NewBuilder(DefaultIndices())

	before := time.Now().UTC()
	records := b.FromExpirations([]string{"node1"})
	after := time.Now().UTC()

	doc := records[0].Document.(presenceDoc)
	stamped, err := time.Parse(timeLayout, doc.Time)
	require.NoError(t, err)

	assert.False(t, stamped.Before(before.Truncate(time.Millisecond)))
	assert.False(t, stamped.After(after.Add(time.Millisecond)))
}
