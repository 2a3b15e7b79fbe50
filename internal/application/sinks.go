package application

import (
	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// MultiSink fans events out to several sinks in order. Nil entries are
// skipped.
type MultiSink []ports.EventSink

var _ ports.EventSink = MultiSink(nil)

// Emit forwards event to every sink.
func (m MultiSink) Emit(event domain.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(event)
		}
	}
}

type discardSink struct{}

func (discardSink) Emit(domain.Event) {}
