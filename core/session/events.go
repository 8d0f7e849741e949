package session

import (
	"log/slog"
)

// CreatedListener is notified when a session is materialized for the first time.
type CreatedListener func(id string, data *Data)

// DestroyedListener is notified when a session is invalidated or expires.
type DestroyedListener func(id string, data *Data)

// IDChangedListener is notified when renewSessionId completes.
type IDChangedListener func(oldID, newID string)

// AttributeAddedListener is notified when an attribute is set for the first time.
type AttributeAddedListener func(id, name string, value any)

// AttributeReplacedListener is notified when an existing attribute's value changes.
type AttributeReplacedListener func(id, name string, oldValue, newValue any)

// AttributeRemovedListener is notified when an attribute is removed.
type AttributeRemovedListener func(id, name string, oldValue any)

// EventBus is a small typed listener registry, one per Manager. Dispatch recovers from
// a panicking listener and logs errors rather than letting either abort the hosting
// operation, per the requirement that listener callback failures never abort the
// operation that triggered them.
type EventBus struct {
	log *slog.Logger

	created           []CreatedListener
	destroyed         []DestroyedListener
	idChanged         []IDChangedListener
	attributeAdded    []AttributeAddedListener
	attributeReplaced []AttributeReplacedListener
	attributeRemoved  []AttributeRemovedListener
}

// NewEventBus returns an empty bus. A nil logger defaults to discard.
func NewEventBus(log *slog.Logger) *EventBus {
	if log == nil {
		log = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return &EventBus{log: log}
}

func (b *EventBus) OnCreated(l CreatedListener)                     { b.created = append(b.created, l) }
func (b *EventBus) OnDestroyed(l DestroyedListener)                 { b.destroyed = append(b.destroyed, l) }
func (b *EventBus) OnIDChanged(l IDChangedListener)                 { b.idChanged = append(b.idChanged, l) }
func (b *EventBus) OnAttributeAdded(l AttributeAddedListener)       { b.attributeAdded = append(b.attributeAdded, l) }
func (b *EventBus) OnAttributeReplaced(l AttributeReplacedListener) {
	b.attributeReplaced = append(b.attributeReplaced, l)
}
func (b *EventBus) OnAttributeRemoved(l AttributeRemovedListener) {
	b.attributeRemoved = append(b.attributeRemoved, l)
}

func (b *EventBus) fireCreated(id string, data *Data) {
	for _, l := range b.created {
		b.guard("created", func() { l(id, data) })
	}
}

func (b *EventBus) fireDestroyed(id string, data *Data) {
	for _, l := range b.destroyed {
		b.guard("destroyed", func() { l(id, data) })
	}
}

func (b *EventBus) fireIDChanged(oldID, newID string) {
	for _, l := range b.idChanged {
		b.guard("idChanged", func() { l(oldID, newID) })
	}
}

func (b *EventBus) fireAttributeAdded(id, name string, value any) {
	for _, l := range b.attributeAdded {
		b.guard("attributeAdded", func() { l(id, name, value) })
	}
}

func (b *EventBus) fireAttributeReplaced(id, name string, oldValue, newValue any) {
	for _, l := range b.attributeReplaced {
		b.guard("attributeReplaced", func() { l(id, name, oldValue, newValue) })
	}
}

func (b *EventBus) fireAttributeRemoved(id, name string, oldValue any) {
	for _, l := range b.attributeRemoved {
		b.guard("attributeRemoved", func() { l(id, name, oldValue) })
	}
}

func (b *EventBus) guard(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("session listener panicked", slog.String("event", event), slog.Any("recovered", r))
		}
	}()
	fn()
}
