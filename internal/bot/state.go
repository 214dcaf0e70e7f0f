package bot

import (
	"sync"
	"time"
)

type step int

const (
	stepNotifyGroupName step = iota + 1
	stepNotifyGroupText
	stepImportFile
)

// conversation is a multi-message command in progress
type conversation struct {
	step    step
	group   string
	updated time.Time
}

// conversations tracks one pending conversation per user
type conversations struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	byUser map[int64]conversation
}

func newConversations(ttl time.Duration, now func() time.Time) *conversations {
	return &conversations{
		ttl:    ttl,
		now:    now,
		byUser: make(map[int64]conversation),
	}
}

func (c *conversations) get(userID int64) (conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.byUser[userID]
	if !ok {
		return conversation{}, false
	}
	if c.ttl > 0 && c.now().Sub(conv.updated) > c.ttl {
		delete(c.byUser, userID)
		return conversation{}, false
	}
	return conv, true
}

func (c *conversations) set(userID int64, conv conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv.updated = c.now()
	c.byUser[userID] = conv
}

// clear drops the pending conversation and reports whether there was one
func (c *conversations) clear(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.byUser[userID]
	delete(c.byUser, userID)
	return ok
}
