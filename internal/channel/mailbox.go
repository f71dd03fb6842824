package channel

import "sync"

// mailbox feeds one handler from its own goroutine so a slow handler
// only ever delays itself. The queue is unbounded: offer never blocks and
// never discards.
type mailbox struct {
	handler Handler

	mu      sync.Mutex
	pending []Message
	stopped bool

	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newMailbox(handler Handler) *mailbox {
	mb := &mailbox{
		handler: handler,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go mb.run()
	return mb
}

func (mb *mailbox) run() {
	for {
		select {
		case <-mb.done:
			return
		case <-mb.signal:
		}
		for {
			msg, ok := mb.next()
			if !ok {
				break
			}
			mb.handler.HandleMessage(msg)
		}
	}
}

func (mb *mailbox) next() (Message, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.stopped || len(mb.pending) == 0 {
		return Message{}, false
	}
	msg := mb.pending[0]
	mb.pending[0] = Message{}
	mb.pending = mb.pending[1:]
	if len(mb.pending) == 0 {
		mb.pending = nil
	}
	return msg, true
}

// offer enqueues msg and returns the number of messages now waiting. It
// reports false only when the mailbox has been stopped.
func (mb *mailbox) offer(msg Message) (int, bool) {
	mb.mu.Lock()
	if mb.stopped {
		mb.mu.Unlock()
		return 0, false
	}
	mb.pending = append(mb.pending, msg)
	backlog := len(mb.pending)
	mb.mu.Unlock()

	select {
	case mb.signal <- struct{}{}:
	default:
	}
	return backlog, true
}

// stop discards pending messages. A handler call already in progress
// finishes; no further call starts.
func (mb *mailbox) stop() {
	mb.once.Do(func() {
		mb.mu.Lock()
		mb.stopped = true
		mb.pending = nil
		mb.mu.Unlock()
		close(mb.done)
	})
}
