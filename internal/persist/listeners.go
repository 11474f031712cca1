package persist

import "sync"

// Listeners is a registry of snapshot observers. Notify calls them in
// registration order; a listener must not block.
type Listeners[S any] struct {
	mu   sync.Mutex
	next uint64
	fns  map[uint64]func(S)
	ids  []uint64
}

// Add registers fn and returns a func that removes it. The cancel func is idempotent.
func (l *Listeners[S]) Add(fn func(S)) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = map[uint64]func(S){}
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.ids = append(l.ids, id)

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *Listeners[S]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.fns, id)
	for i, v := range l.ids {
		if v == id {
			l.ids = append(l.ids[:i], l.ids[i+1:]...)
			break
		}
	}
}

func (l *Listeners[S]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

func (l *Listeners[S]) Notify(s S) {
	l.mu.Lock()
	fns := make([]func(S), 0, len(l.ids))
	for _, id := range l.ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
