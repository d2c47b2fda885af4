package browser

import (
	"fmt"
	"sync"
)

// maxAlerts bounds the pending acknowledgment queue. Oldest alerts are dropped
// first.
const maxAlerts = 64

// AlertKind identifies the event an alert acknowledges.
type AlertKind string

const (
	AlertFetchFailed   AlertKind = "fetch_failed"
	AlertAdded         AlertKind = "added"
	AlertAlreadyInCart AlertKind = "already_in_cart"
)

// Alert is a one-time acknowledgment shown to the user at the moment an
// event happens.
type Alert struct {
	Kind    AlertKind
	Title   string
	Message string
}

func fetchFailedAlert(message string) Alert {
	return Alert{Kind: AlertFetchFailed, Title: "Error", Message: message}
}

func addedAlert(title string) Alert {
	return Alert{
		Kind:    AlertAdded,
		Title:   "Added to cart",
		Message: fmt.Sprintf("\"%s\" has been added to your cart.", title),
	}
}

func alreadyInCartAlert() Alert {
	return Alert{
		Kind:    AlertAlreadyInCart,
		Title:   "Already in cart",
		Message: "This item is already in your cart.",
	}
}

type alertQueue struct {
	mu      sync.Mutex
	pending []Alert
}

func (q *alertQueue) push(a Alert) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == maxAlerts {
		q.pending = append(q.pending[:0], q.pending[1:]...)
	}
	q.pending = append(q.pending, a)
}

func (q *alertQueue) drain() []Alert {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil
	return out
}
