// Package logging builds the slog loggers used across the explainer.
//
// Console output is a compact single-line format with an optional component
// prefix; JSON output uses stable keys for ingestion.
package logging
