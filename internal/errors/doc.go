// Package errors provides structured, actionable error messages for the
// templatestore command.
//
// The store itself never returns errors; this package covers the outer
// surfaces that can fail: loading configuration, parsing flags and serving
// the inspector.
//
// Each error has a code (e.g. "C001") that maps to a short message and a
// longer explanation. Call sites add detail, a suggestion and the source
// location where that is known:
//
//	err := errors.New("C002").
//	    WithLocation("templatestore.yaml", 4, 0).
//	    WithSuggestion(`Use "immediate" or "deferred"`)
//
//	errors.PrintError(err)
package errors
