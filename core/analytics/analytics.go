package analytics

import (
	"sort"
	"sync"
	"time"
)

// Document is the serialized analytics store.
type Document struct {
	PageViews    map[string]int `json:"page_views"`
	ButtonClicks map[string]int `json:"button_clicks"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// DefaultDocument returns the document written on first load.
func DefaultDocument(now time.Time) Document {
	return Document{
		PageViews:    map[string]int{},
		ButtonClicks: map[string]int{},
		LastUpdated:  now,
	}
}

// Entry pairs a counter key with its count for ranked listings.
type Entry struct {
	Key   string
	Count int
}

// Tracker accumulates global page-view and button-click counters.
// Per-user activity lives in the users directory. Safe for concurrent use.
type Tracker struct {
	mu           sync.RWMutex
	pageViews    map[string]int
	buttonClicks map[string]int
	now          func() time.Time
}

// NewTracker builds a tracker from a persisted document.
func NewTracker(doc Document) *Tracker {
	t := &Tracker{
		pageViews:    doc.PageViews,
		buttonClicks: doc.ButtonClicks,
		now:          time.Now,
	}
	if t.pageViews == nil {
		t.pageViews = map[string]int{}
	}
	if t.buttonClicks == nil {
		t.buttonClicks = map[string]int{}
	}
	return t
}

// Snapshot returns a deep copy of the counters for persistence.
func (t *Tracker) Snapshot() Document {
	t.mu.RLock()
	defer t.mu.RUnlock()
	doc := Document{
		PageViews:    make(map[string]int, len(t.pageViews)),
		ButtonClicks: make(map[string]int, len(t.buttonClicks)),
		LastUpdated:  t.now(),
	}
	for k, v := range t.pageViews {
		doc.PageViews[k] = v
	}
	for k, v := range t.buttonClicks {
		doc.ButtonClicks[k] = v
	}
	return doc
}

// PageView counts one view of the page.
func (t *Tracker) PageView(pageID string) {
	if pageID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pageViews[pageID]++
}

// ButtonClick counts one press of the button, keyed by its label.
func (t *Tracker) ButtonClick(buttonText string) {
	if buttonText == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buttonClicks[buttonText]++
}

// TotalPageViews sums the page-view counters.
func (t *Tracker) TotalPageViews() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := 0
	for _, v := range t.pageViews {
		total += v
	}
	return total
}

// TotalButtonClicks sums the button-click counters.
func (t *Tracker) TotalButtonClicks() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := 0
	for _, v := range t.buttonClicks {
		total += v
	}
	return total
}

// TopPages returns up to n pages ranked by views.
func (t *Tracker) TopPages(n int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return topN(t.pageViews, n)
}

// TopButtons returns up to n buttons ranked by clicks.
func (t *Tracker) TopButtons(n int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return topN(t.buttonClicks, n)
}

func topN(counters map[string]int, n int) []Entry {
	if n <= 0 {
		return nil
	}
	entries := make([]Entry, 0, len(counters))
	for k, v := range counters {
		entries = append(entries, Entry{Key: k, Count: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count == entries[j].Count {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// DayCount is one calendar day's active-user count.
type DayCount struct {
	Date  string
	Count int
}

// DailyActivity buckets the provided last-seen times into the last `days`
// calendar days, newest first. Each slot counts users seen that day.
func DailyActivity(lastSeen []time.Time, now time.Time, days int) []DayCount {
	if days <= 0 {
		return nil
	}
	buckets := make(map[string]int, days)
	order := make([]string, 0, days)
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		buckets[day] = 0
		order = append(order, day)
	}
	for _, ts := range lastSeen {
		day := ts.Format("2006-01-02")
		if _, ok := buckets[day]; ok {
			buckets[day]++
		}
	}
	out := make([]DayCount, 0, days)
	for _, day := range order {
		out = append(out, DayCount{Date: day, Count: buckets[day]})
	}
	return out
}
