package orchestrator

import "relaychat/model"

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 16

// Event reports a state change. Kind and Err are set for StateError.
type Event struct {
	State State
	Kind  model.ErrorKind
	Model string
	Err   error
}

// Subscribe registers for state change events. Delivery never blocks the
// orchestrator: a subscriber that falls behind misses events, and State()
// remains the authoritative snapshot. Call cancel to unsubscribe; it closes
// the channel.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	o.subMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	o.subMu.Unlock()

	cancel := func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		if c, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (o *Orchestrator) publish(ev Event) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
