package logging

import "log/slog"

// Common field names for consistent logging across the bridge.
const (
	FieldService  = "service"
	FieldKind     = "kind"
	FieldEndpoint = "endpoint"
	FieldIndex    = "index"
	FieldRecords  = "records"
	FieldIP       = "ip"
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldError    = "error"
	FieldEngine   = "engine"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Kind returns a slog attribute for the callback kind.
func Kind(kind string) slog.Attr {
	return slog.String(FieldKind, kind)
}

// Endpoint returns a slog attribute for a device endpoint name.
func Endpoint(name string) slog.Attr {
	return slog.String(FieldEndpoint, name)
}

// Index returns a slog attribute for a target index name.
func Index(name string) slog.Attr {
	return slog.String(FieldIndex, name)
}

// Records returns a slog attribute for a bulk record count.
func Records(n int) slog.Attr {
	return slog.Int(FieldRecords, n)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Engine returns a slog attribute for the engine client in use.
func Engine(name string) slog.Attr {
	return slog.String(FieldEngine, name)
}
