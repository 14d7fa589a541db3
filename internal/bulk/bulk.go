// Package bulk turns classified callback batches into the search engine's
// bulk wire format: alternating action and document lines, newline-terminated.
package bulk

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devicepulse/devicepulse/internal/callback"
)

// Default target index names. These are the wire contract with the engine.
const (
	IndexNotifications = "notifications"
	IndexDevices       = "devices"
	IndexRegistrations = "registrations"
)

// docType is the engine's generic document type marker.
const docType = "_doc"

// timeLayout matches the upstream convention of millisecond-precision UTC
// timestamps in every document.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Indices carries the resolved index names for the three record targets.
type Indices struct {
	Notifications string
	Devices       string
	Registrations string
}

// DefaultIndices returns the standard index layout.
func DefaultIndices() Indices {
	return Indices{
		Notifications: IndexNotifications,
		Devices:       IndexDevices,
		Registrations: IndexRegistrations,
	}
}

// Record is a single bulk index operation: the target index and the document
// to write there. Records are emitted in the order the engine must apply them.
type Record struct {
	Index    string
	Document interface{}
}

type actionMeta struct {
	Index actionTarget `json:"index"`
}

type actionTarget struct {
	Index string `json:"_index"`
	Type  string `json:"_type"`
}

type notificationDoc struct {
	Time     string `json:"time"`
	Endpoint string `json:"endpoint"`
	Path     string `json:"path"`
	Value    string `json:"value"`
}

type deviceDoc struct {
	Time             string `json:"time"`
	Endpoint         string `json:"endpoint"`
	OriginalEndpoint string `json:"original-ep"`
	EndpointType     string `json:"ept"`
	Resources        string `json:"resources"`
}

// presenceDoc marks a device alive (1) or expired (0) in the registrations
// index, forming a single 1/0 time series per endpoint.
type presenceDoc struct {
	Time     string `json:"time"`
	Endpoint string `json:"endpoint"`
	Value    int    `json:"value"`
}

// Builder transforms event batches into bulk records. It never touches the
// network; every document is stamped with the transformation time.
type Builder struct {
	indices Indices
	now     func() time.Time
}

// NewBuilder returns a Builder writing to the given indices. Empty names fall
// back to the defaults.
func NewBuilder(indices Indices) *Builder {
	def := DefaultIndices()
	if indices.Notifications == "" {
		indices.Notifications = def.Notifications
	}
	if indices.Devices == "" {
		indices.Devices = def.Devices
	}
	if indices.Registrations == "" {
		indices.Registrations = def.Registrations
	}
	return &Builder{
		indices: indices,
		now:     time.Now,
	}
}

// FromBatch builds the records for a classified batch. Unknown batches yield
// no records.
func (b *Builder) FromBatch(batch *callback.Batch) []Record {
	switch batch.Kind {
	case callback.KindNotifications:
		return b.FromNotifications(batch.Notifications)
	case callback.KindRegistrations:
		return b.FromRegistrations(batch.Registrations)
	case callback.KindExpirations:
		return b.FromExpirations(batch.Expirations)
	default:
		return nil
	}
}

// FromNotifications emits one notifications record per item. The payload is
// base64-decoded into the document's value field.
func (b *Builder) FromNotifications(items []callback.Notification) []Record {
	now := b.timestamp()
	records := make([]Record, 0, len(items))
	for _, n := range items {
		records = append(records, Record{
			Index: b.indices.Notifications,
			Document: notificationDoc{
				Time:     now,
				Endpoint: n.Endpoint,
				Path:     n.Path,
				Value:    decodePayload(n.Payload),
			},
		})
	}
	return records
}

// FromRegistrations emits two records per item in fixed order: the device
// snapshot, then the liveness marker with value 1.
func (b *Builder) FromRegistrations(items []callback.Registration) []Record {
	now := b.timestamp()
	records := make([]Record, 0, 2*len(items))
	for _, r := range items {
		records = append(records, Record{
			Index: b.indices.Devices,
			Document: deviceDoc{
				Time:             now,
				Endpoint:         r.Endpoint,
				OriginalEndpoint: r.OriginalEndpoint,
				EndpointType:     r.EndpointType,
				Resources:        encodeResources(r.Resources),
			},
		})
		records = append(records, Record{
			Index: b.indices.Registrations,
			Document: presenceDoc{
				Time:     now,
				Endpoint: r.Endpoint,
				Value:    1,
			},
		})
	}
	return records
}

// FromExpirations emits one absence marker per endpoint name.
func (b *Builder) FromExpirations(endpoints []string) []Record {
	now := b.timestamp()
	records := make([]Record, 0, len(endpoints))
	for _, ep := range endpoints {
		records = append(records, Record{
			Index: b.indices.Registrations,
			Document: presenceDoc{
				Time:     now,
				Endpoint: ep,
				Value:    0,
			},
		})
	}
	return records
}

func (b *Builder) timestamp() string {
	return b.now().UTC().Format(timeLayout)
}

// EncodeNDJSON serializes records as the engine's bulk payload: an action
// line and a document line per record, every line newline-terminated. An
// empty record list yields an empty payload.
func EncodeNDJSON(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range records {
		action, err := json.Marshal(actionMeta{
			Index: actionTarget{Index: rec.Index, Type: docType},
		})
		if err != nil {
			return nil, fmt.Errorf("encode action line: %w", err)
		}
		buf.Write(action)
		buf.WriteByte('\n')

		doc, err := json.Marshal(rec.Document)
		if err != nil {
			return nil, fmt.Errorf("encode document for index %s: %w", rec.Index, err)
		}
		buf.Write(doc)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// decodePayload decodes a base64 payload into text. Decoding is lenient:
// standard then unpadded alphabets are tried, and an undecodable payload
// collapses to the empty string rather than failing the batch.
func decodePayload(payload string) string {
	if payload == "" {
		return ""
	}
	if b, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return string(b)
	}
	if b, err := base64.RawStdEncoding.DecodeString(payload); err == nil {
		return string(b)
	}
	return ""
}

// encodeResources stores the registration resource list as a string-encoded
// JSON blob, the engine's flat-document convention. Absent resources become
// the string "null".
func encodeResources(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	compact, err := json.Marshal(raw)
	if err != nil {
		return "null"
	}
	return string(compact)
}
