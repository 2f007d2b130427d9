package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

const DefaultCapacity = 50

type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Feed guarda, por usuário, os avisos ainda não lidos pelo painel. Quando
// cheio, o aviso mais antigo é descartado.
type Feed struct {
	mu       sync.Mutex
	capacity int
	items    map[string][]Notification
	now      func() time.Time
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		capacity: capacity,
		items:    make(map[string][]Notification),
		now:      time.Now,
	}
}

func (f *Feed) Notify(userID string, kind Kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := append(f.items[userID], Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		CreatedAt: f.now().UTC(),
	})
	if len(list) > f.capacity {
		list = list[len(list)-f.capacity:]
	}
	f.items[userID] = list
}

func (f *Feed) Success(userID, message string) { f.Notify(userID, KindSuccess, message) }

func (f *Feed) Error(userID, message string) { f.Notify(userID, KindError, message) }

// Drain devolve os avisos pendentes em ordem de chegada e esvazia o feed.
func (f *Feed) Drain(userID string) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := f.items[userID]
	delete(f.items, userID)
	if list == nil {
		return []Notification{}
	}
	return list
}
