// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"context"
	"log/slog"
)

type (
	// FaultObserver is notified when an extension analyzer fails.
	FaultObserver interface {
		ObserveFault(ctx context.Context, fault *ExtensionFault)
	}

	// FaultObserverFunc adapts a function to the FaultObserver interface.
	FaultObserverFunc func(ctx context.Context, fault *ExtensionFault)

	// SlogFaultObserver logs faults at warn level with "resource" and
	// "analyzer" attributes.
	SlogFaultObserver struct {
		logger *slog.Logger
	}
)

// ObserveFault calls f.
func (f FaultObserverFunc) ObserveFault(ctx context.Context, fault *ExtensionFault) { f(ctx, fault) }

// NewSlogFaultObserver logs to logger, or to slog.Default() when logger is nil.
func NewSlogFaultObserver(logger *slog.Logger) *SlogFaultObserver {
	return &SlogFaultObserver{logger: logger}
}

// ObserveFault implements FaultObserver.
func (o *SlogFaultObserver) ObserveFault(ctx context.Context, fault *ExtensionFault) {
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"resource", fault.Resource, "analyzer", fault.Analyzer, "error", fault.Err}
	if fault.Panic != nil {
		attrs = append(attrs, "panic", true)
	}
	logger.WarnContext(ctx, "analyzer failed, discarding its output", attrs...)
}
