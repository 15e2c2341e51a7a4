package importer

import (
	"log"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

// Event announces a freshly provisioned collaborator. Delivery (email,
// websocket) is external; the import core only emits.
type Event struct {
	Name         string
	Email        string
	Kind         store.CollaboratorKind
	ConfirmToken string
}

// Notifier consumes provisioning events.
type Notifier interface {
	CollaboratorProvisioned(ev Event)
}

// LogNotifier writes events to the process log. It is the default when no
// real dispatcher is wired.
type LogNotifier struct{}

func (LogNotifier) CollaboratorProvisioned(ev Event) {
	log.Printf("collaborator provisioned: %s <%s> (%s)", ev.Name, ev.Email, ev.Kind)
}
