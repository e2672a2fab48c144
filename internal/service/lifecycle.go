package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ticketgate/gate-api/internal/domain"
	"github.com/ticketgate/gate-api/internal/pkg/clock"
	"github.com/ticketgate/gate-api/internal/repository"
)

type GateVerdict string

const (
	GateOpen     GateVerdict = "open"
	GateMissing  GateVerdict = "missing"
	GateDisabled GateVerdict = "disabled"
	GateArchived GateVerdict = "archived"
)

// Gate is the answer to "may this event admit attendees now".
type Gate struct {
	Verdict GateVerdict
	Event   domain.Event
	State   domain.LifecycleState
}

type EventGate struct {
	events       EventRepository
	clock        clock.Clock
	defaultGrace time.Duration
}

func NewEventGate(events EventRepository, clk clock.Clock, defaultGrace time.Duration) *EventGate {
	return &EventGate{
		events:       events,
		clock:        clk,
		defaultGrace: defaultGrace,
	}
}

// CanAdmit derives the event lifecycle at the current time. The error is
// non-nil only when the event could not be read.
func (g *EventGate) CanAdmit(ctx context.Context, eventID uint) (Gate, error) {
	event, err := g.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return Gate{Verdict: GateMissing}, nil
		}

		return Gate{}, fmt.Errorf("g.events.FindByID -> %w", err)
	}

	gate := Gate{
		Verdict: GateOpen,
		Event:   event,
		State:   event.Lifecycle(g.clock.Now(), g.defaultGrace),
	}
	switch {
	case gate.State == domain.LifecycleArchived:
		gate.Verdict = GateArchived
	case !event.ScansEnabled:
		gate.Verdict = GateDisabled
	}

	return gate, nil
}
