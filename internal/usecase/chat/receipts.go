package chat

import (
	"sync"
	"time"
)

// receiptTimer abstracts time.Timer so tests can fire deliveries
// synchronously.
type receiptTimer interface {
	Stop() bool
}

type receiptEntry struct {
	msgID     string
	sender    string
	recipient string
	timer     receiptTimer
}

// ReceiptScheduler arms one read-receipt timer per delivered message.
// When the timer fires the sender gets a messageRead event; marking the
// conversation seen or losing the recipient's connection cancels the
// pending timers instead of firing stale receipts.
type ReceiptScheduler struct {
	delay     time.Duration
	afterFunc func(d time.Duration, f func()) receiptTimer

	mu          sync.Mutex
	pending     map[string]*receiptEntry
	byRecipient map[string]map[string]struct{}
}

// NewReceiptScheduler creates a scheduler that fires delay after a
// message is delivered.
func NewReceiptScheduler(delay time.Duration) *ReceiptScheduler {
	return &ReceiptScheduler{
		delay: delay,
		afterFunc: func(d time.Duration, f func()) receiptTimer {
			return time.AfterFunc(d, f)
		},
		pending:     make(map[string]*receiptEntry),
		byRecipient: make(map[string]map[string]struct{}),
	}
}

// Schedule arms a timer for msgID. fire runs once after the delay unless
// the entry is cancelled first. Scheduling the same message twice resets
// the timer.
func (s *ReceiptScheduler) Schedule(msgID, sender, recipient string, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.pending[msgID]; ok {
		old.timer.Stop()
		s.unindex(old)
	}

	entry := &receiptEntry{msgID: msgID, sender: sender, recipient: recipient}
	entry.timer = s.afterFunc(s.delay, func() {
		if s.take(msgID) {
			fire()
		}
	})
	s.pending[msgID] = entry
	if s.byRecipient[recipient] == nil {
		s.byRecipient[recipient] = make(map[string]struct{})
	}
	s.byRecipient[recipient][msgID] = struct{}{}
}

// Cancel stops the timer for a single message. Returns true if a timer
// was pending.
func (s *ReceiptScheduler) Cancel(msgID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[msgID]
	if !ok {
		return false
	}
	entry.timer.Stop()
	s.unindex(entry)
	delete(s.pending, msgID)
	return true
}

// CancelPair stops all pending timers for messages sender -> recipient.
// Returns how many were cancelled.
func (s *ReceiptScheduler) CancelPair(sender, recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cancelled int
	for msgID := range s.byRecipient[recipient] {
		entry := s.pending[msgID]
		if entry == nil || entry.sender != sender {
			continue
		}
		entry.timer.Stop()
		s.unindex(entry)
		delete(s.pending, msgID)
		cancelled++
	}
	return cancelled
}

// CancelRecipient stops every pending timer addressed to recipient. Used
// when the recipient's connection drops.
func (s *ReceiptScheduler) CancelRecipient(recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cancelled int
	for msgID := range s.byRecipient[recipient] {
		if entry, ok := s.pending[msgID]; ok {
			entry.timer.Stop()
			delete(s.pending, msgID)
			cancelled++
		}
	}
	delete(s.byRecipient, recipient)
	return cancelled
}

// Pending returns the number of armed timers.
func (s *ReceiptScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// take removes the entry when its timer fires. Returns false if the
// entry was cancelled between firing and acquiring the lock.
func (s *ReceiptScheduler) take(msgID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[msgID]
	if !ok {
		return false
	}
	s.unindex(entry)
	delete(s.pending, msgID)
	return true
}

// unindex removes the entry from the recipient index. Caller holds mu.
func (s *ReceiptScheduler) unindex(entry *receiptEntry) {
	if set := s.byRecipient[entry.recipient]; set != nil {
		delete(set, entry.msgID)
		if len(set) == 0 {
			delete(s.byRecipient, entry.recipient)
		}
	}
}
