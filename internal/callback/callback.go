// Package callback models the webhook bodies pushed by the device-management
// service and classifies them into the event batches the bridge understands.
package callback

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies which event branch a callback body belongs to.
type Kind string

const (
	KindNotifications Kind = "notifications"
	KindRegistrations Kind = "registrations"
	KindExpirations   Kind = "expirations"
	KindUnknown       Kind = "unknown"
)

// Notification is one telemetry push for a device resource.
// The payload arrives base64-encoded.
type Notification struct {
	Endpoint string `json:"ep"`
	Path     string `json:"path"`
	Payload  string `json:"payload"`
}

// Registration is a device snapshot delivered on registration or on a
// registration update. Resources is kept raw; it is stored downstream as a
// string-encoded JSON blob, never as a nested object.
type Registration struct {
	Endpoint         string          `json:"ep"`
	OriginalEndpoint string          `json:"original-ep"`
	EndpointType     string          `json:"ept"`
	Resources        json.RawMessage `json:"resources"`
}

// Batch is a classified callback body. Exactly one of the event slices is
// populated, matching Kind; SourceKey records which wire key selected the
// branch (registrations and reg-updates share KindRegistrations).
type Batch struct {
	Kind          Kind
	SourceKey     string
	Notifications []Notification
	Registrations []Registration
	Expirations   []string
}

// Len returns the number of events in the selected branch.
func (b *Batch) Len() int {
	switch b.Kind {
	case KindNotifications:
		return len(b.Notifications)
	case KindRegistrations:
		return len(b.Registrations)
	case KindExpirations:
		return len(b.Expirations)
	default:
		return 0
	}
}

// Decode classifies a callback body by key presence, in priority order:
// notifications, registrations, reg-updates, registrations-expired. A body
// matching none of them decodes to KindUnknown so the caller can acknowledge
// it without further processing. A key present with a JSON null is treated
// as absent.
//
// Wrong-typed fragments inside a recognized list do not fail the batch:
// encoding/json fills what it can and the zero-valued remainder flows into
// the documents. Only syntactically broken JSON returns an error.
func Decode(data []byte) (*Batch, error) {
	var body struct {
		Notifications []Notification `json:"notifications"`
		Registrations []Registration `json:"registrations"`
		RegUpdates    []Registration `json:"reg-updates"`
		Expired       []string       `json:"registrations-expired"`
	}

	if err := json.Unmarshal(data, &body); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("decode callback body: %w", err)
		}
		// Type mismatch somewhere in the body; the filled fields still
		// decide the branch.
	}

	switch {
	case body.Notifications != nil:
		return &Batch{
			Kind:          KindNotifications,
			SourceKey:     "notifications",
			Notifications: body.Notifications,
		}, nil
	case body.Registrations != nil:
		return &Batch{
			Kind:          KindRegistrations,
			SourceKey:     "registrations",
			Registrations: body.Registrations,
		}, nil
	case body.RegUpdates != nil:
		return &Batch{
			Kind:          KindRegistrations,
			SourceKey:     "reg-updates",
			Registrations: body.RegUpdates,
		}, nil
	case body.Expired != nil:
		return &Batch{
			Kind:        KindExpirations,
			SourceKey:   "registrations-expired",
			Expirations: body.Expired,
		}, nil
	default:
		return &Batch{Kind: KindUnknown}, nil
	}
}
