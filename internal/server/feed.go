package server

import (
	"sync"
	"time"
)

const maxFeedEntries = 200

// FeedEntry is one line of funding progress visible to the operator.
type FeedEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	IsError   bool      `json:"is_error"`
}

// FundingFeed is a bounded, newest-first buffer of funding worker output. The
// event pump writes into it; the API reads from it. It deliberately mirrors
// the per-bot log ring so both surfaces behave the same under load.
type FundingFeed struct {
	mu      sync.Mutex
	entries []FeedEntry
}

// NewFundingFeed creates an empty feed.
func NewFundingFeed() *FundingFeed {
	return &FundingFeed{}
}

// Append prepends a line, dropping the oldest past capacity.
func (f *FundingFeed) Append(msg string, isErr bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry := FeedEntry{Timestamp: time.Now(), Message: msg, IsError: isErr}
	f.entries = append([]FeedEntry{entry}, f.entries...)
	if len(f.entries) > maxFeedEntries {
		f.entries = f.entries[:maxFeedEntries]
	}
}

// Recent returns a copy of the feed, newest first.
func (f *FundingFeed) Recent() []FeedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]FeedEntry, len(f.entries))
	copy(out, f.entries)
	return out
}
