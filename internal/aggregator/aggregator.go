package aggregator

import (
	"errors"
	"sort"
)

// OtherKey names the bucket that collects entries beyond the top N.
const OtherKey = "Other"

// ErrNotFound is returned by lookups whose key is absent from a report.
var ErrNotFound = errors.New("no exact match")

// Entry is one key and how often it occurred.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Report is a frequency table sorted by descending count. Ties keep the
// order in which keys were first seen.
type Report struct {
	Kind    string  `json:"kind"` // what the keys are: Module, Username, Class
	Total   int     `json:"total"`
	Entries []Entry `json:"entries"`
}

// MostFrequent returns the top entry, or false for an empty report.
func (r Report) MostFrequent() (Entry, bool) {
	if len(r.Entries) == 0 {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// Count returns the count for an exact key.
func (r Report) Count(key string) (int, error) {
	for _, e := range r.Entries {
		if e.Key == key {
			return e.Count, nil
		}
	}
	return 0, ErrNotFound
}

// Top returns the first n entries. When includeRest is set and entries were
// cut, their counts are folded into a trailing Other entry.
func (r Report) Top(n int, includeRest bool) []Entry {
	if n <= 0 || n >= len(r.Entries) {
		return append([]Entry(nil), r.Entries...)
	}

	top := append([]Entry(nil), r.Entries[:n]...)
	if includeRest {
		rest := 0
		for _, e := range r.Entries[n:] {
			rest += e.Count
		}
		top = append(top, Entry{Key: OtherKey, Count: rest})
	}
	return top
}

// counter tallies keys while remembering first-occurrence order.
type counter struct {
	index   map[string]int
	entries []Entry
	total   int
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) add(key string) {
	c.total++
	if i, ok := c.index[key]; ok {
		c.entries[i].Count++
		return
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, Entry{Key: key, Count: 1})
}

// report copies the tallies out, sorted. The counter may keep counting.
func (c *counter) report(kind string) Report {
	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return Report{Kind: kind, Total: c.total, Entries: entries}
}
