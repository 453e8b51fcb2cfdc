// Package gate suspends a flagged letter submission until the writer has seen
// support resources and chosen to post or to walk away.
//
// A draft with crisis content is held in a Store under a single-use ticket.
// Resolving the ticket with DecisionProceed hands the draft back to the
// caller; DecisionAbandon discards it. When no Store is available the gate
// fails open and the submission continues immediately.
package gate
