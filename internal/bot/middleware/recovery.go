// Package middleware holds the cross-cutting pieces of interaction
// handling: logging, panic recovery and per-user rate limiting.
package middleware

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Recover turns a panic in an interaction handler into an error log instead
// of a dead gateway connection. Use with defer.
func Recover(where string) {
	if r := recover(); r != nil {
		logrus.WithFields(logrus.Fields{
			"panic": r,
			"where": where,
			"stack": string(debug.Stack()),
		}).Error("Recovered from panic in handler")
	}
}
