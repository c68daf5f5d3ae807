package broadcast

import "sync"

// roomLocks serialises work per room. Entries live only while some caller holds
// or waits on them, so memory tracks the number of busy rooms and two rooms
// never share a mutex.
type roomLocks struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{rooms: make(map[string]*roomLock)}
}

func (r *roomLocks) lock(roomID string) (unlock func()) {
	r.mu.Lock()
	rl, ok := r.rooms[roomID]
	if !ok {
		rl = &roomLock{}
		r.rooms[roomID] = rl
	}
	rl.refs++
	r.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		r.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(r.rooms, roomID)
		}
		r.mu.Unlock()
	}
}

func (r *roomLocks) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
