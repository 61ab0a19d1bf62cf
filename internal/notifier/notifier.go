// Package notifier delivers live-scan candidate reports.
package notifier

import (
	"context"
	"log"
)

// Notifier sends one human-readable message per scan report.
type Notifier interface {
	Send(ctx context.Context, msg string) error
}

// LogNotifier writes reports to the process log. It is the fallback when
// no delivery channel is configured.
type LogNotifier struct{}

func NewLog() *LogNotifier { return &LogNotifier{} }

func (l *LogNotifier) Send(ctx context.Context, msg string) error {
	log.Printf("notify | %s", msg)
	return nil
}
