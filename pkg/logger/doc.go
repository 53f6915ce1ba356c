// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// New builds a *slog.Logger from a set of Option functions: output format
// (text or json), minimum level, static attributes applied to every record,
// and ContextExtractor callbacks that pull request-scoped values (such as a
// request id) out of the context on every Handle call.
//
// Helper constructors in attr.go keep attribute naming consistent across the
// codebase: Error, OwnerID, ContextID, RecordID, Origin, RequestID.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithFormat(logger.FormatJSON),
//	    logger.WithLevel(slog.LevelInfo),
//	    logger.WithAttr(slog.String("service", "lockbox")),
//	)
//	log.InfoContext(ctx, "context created", logger.ContextID(id))
package logger
