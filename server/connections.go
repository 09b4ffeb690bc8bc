package polyserv

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type subscriber struct {
	ID   uuid.UUID
	Addr string
	conn *websocket.Conn
	send chan []byte
}

// subscriberList owns every subscriber's send channel. Channels are only
// closed under the write lock, so Broadcast never sends on a closed channel.
type subscriberList struct {
	subscribers map[uuid.UUID]*subscriber
	mu          sync.RWMutex
}

func newSubscriberList() *subscriberList {
	return &subscriberList{
		subscribers: make(map[uuid.UUID]*subscriber),
	}
}

func (sl *subscriberList) Add(s *subscriber) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.subscribers[s.ID] = s
}

func (sl *subscriberList) Remove(id uuid.UUID) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	s, ok := sl.subscribers[id]
	if !ok {
		return false
	}
	delete(sl.subscribers, id)
	close(s.send)
	return true
}

func (sl *subscriberList) RemoveAll() {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	for id, s := range sl.subscribers {
		delete(sl.subscribers, id)
		close(s.send)
	}
}

func (sl *subscriberList) Len() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return len(sl.subscribers)
}

// Broadcast queues message for every subscriber and returns the ones whose
// buffers were full.
func (sl *subscriberList) Broadcast(message []byte) []uuid.UUID {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	var slow []uuid.UUID
	for id, s := range sl.subscribers {
		select {
		case s.send <- message:
		default:
			slow = append(slow, id)
		}
	}
	return slow
}
