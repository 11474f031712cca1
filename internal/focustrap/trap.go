package focustrap

type Key string

const (
	KeyTab    Key = "Tab"
	KeyEscape Key = "Escape"
)

type KeyEvent struct {
	Key   Key
	Shift bool
}

// Trap keeps focus inside container while active.
type Trap struct {
	doc       *Document
	container *Node
	onEscape  func()

	active   bool
	previous *Node
}

// New returns an inactive trap. onEscape may be nil, in which case Escape
// is left alone.
func New(doc *Document, container *Node, onEscape func()) *Trap {
	return &Trap{doc: doc, container: container, onEscape: onEscape}
}

func (t *Trap) Active() bool { return t.active }

// Activate remembers the focused node and moves focus to the first
// focusable node in the container. Activating twice is a no-op.
func (t *Trap) Activate() {
	if t.active {
		return
	}
	t.active = true
	t.previous = t.doc.Active()

	if nodes := t.container.FocusableDescendants(); len(nodes) > 0 {
		t.doc.Focus(nodes[0])
	}
}

// Deactivate gives focus back to the node that had it before Activate.
func (t *Trap) Deactivate() {
	if !t.active {
		return
	}
	t.active = false

	if t.previous != nil {
		t.doc.Focus(t.previous)
	}
	t.previous = nil
}

// HandleKey applies ev and reports whether the trap consumed it. Consumed
// events must not reach the default handler.
func (t *Trap) HandleKey(ev KeyEvent) bool {
	if !t.active {
		return false
	}

	switch ev.Key {
	case KeyEscape:
		if t.onEscape == nil {
			return false
		}
		t.onEscape()
		return true
	case KeyTab:
		return t.cycle(ev.Shift)
	default:
		return false
	}
}

func (t *Trap) cycle(backward bool) bool {
	nodes := t.container.FocusableDescendants()
	if len(nodes) == 0 {
		return false
	}
	last := len(nodes) - 1

	cur := -1
	for i, n := range nodes {
		if n == t.doc.Active() {
			cur = i
			break
		}
	}

	var next int
	switch {
	case cur < 0 && backward:
		next = last
	case cur < 0:
		next = 0
	case backward && cur == 0:
		next = last
	case backward:
		next = cur - 1
	case cur == last:
		next = 0
	default:
		next = cur + 1
	}

	t.doc.Focus(nodes[next])
	return true
}
