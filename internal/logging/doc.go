// Package logging provides structured logging utilities for gmailurl.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger for a run:
//
//	logger := logging.New(os.Stderr, debug).With(logging.RunID(uuid.NewString()))
//	logger = logging.WithOperation(logger, "decode")
//	logger.Info("scan finished",
//	    logging.Source("raw"),
//	    logging.Status("success"))
//
// Tokens recovered from evidence are never logged verbatim:
//
//	logger.Debug("token corrected",
//	    logging.Field("new_view_token"),
//	    logging.Token(token))
package logging
