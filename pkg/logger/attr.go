package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// OwnerID records the owner identifier under the key "owner_id".
func OwnerID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("owner_id", id)
}

// ContextID records the encryption-context identifier under the key "context_id".
func ContextID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("context_id", id)
}

// RecordID records the encrypted-record identifier under the key "record_id".
func RecordID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("record_id", id)
}

// Origin records the caller's origin identity under the key "origin".
func Origin(origin string) slog.Attr {
	if origin == "" {
		return slog.Attr{}
	}
	return slog.String("origin", origin)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}
