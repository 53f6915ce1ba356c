// Package pg wires up the PostgreSQL connection pool used for contexts and
// encrypted records: pgxpool connection with retry, goose schema migrations
// routed through the application logger, a health check closure for the
// readiness endpoint, and helpers for classifying common pgx errors.
package pg
