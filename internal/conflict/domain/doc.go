// Package domain defines wars, battles, and their pure state transitions.
//
// A war moves through exactly four phases, in order: declared, active,
// resolution, concluded. No phase is skipped and no other phase exists.
// All randomness lives in the service layer; functions here are
// deterministic.
package domain
