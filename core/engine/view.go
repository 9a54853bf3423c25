package engine

import "sync"

// viewState holds volatile per-user UI flags that are not editor sessions:
// the pending user-search prompt and the page index of the users list.
// Lost on restart, which is fine for pagination.
type viewState struct {
	mu        sync.Mutex
	searching map[int64]bool
	usersPage map[int64]int
}

func newViewState() viewState {
	return viewState{
		searching: make(map[int64]bool),
		usersPage: make(map[int64]int),
	}
}

// setSearching arms the one-shot search prompt for the user.
func (v *viewState) setSearching(userID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.searching[userID] = true
}

// takeSearching consumes the search flag, reporting whether it was set.
func (v *viewState) takeSearching(userID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.searching[userID] {
		return false
	}
	delete(v.searching, userID)
	return true
}

// clearSearching disarms a pending search prompt without consuming it.
func (v *viewState) clearSearching(userID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.searching, userID)
}

func (v *viewState) pageIndex(userID int64) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.usersPage[userID]
}

// movePage shifts the user's list page by delta, clamped at zero.
func (v *viewState) movePage(userID int64, delta int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	p := v.usersPage[userID] + delta
	if p < 0 {
		p = 0
	}
	v.usersPage[userID] = p
	return p
}

func (v *viewState) setPage(userID int64, idx int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if idx < 0 {
		idx = 0
	}
	v.usersPage[userID] = idx
}

func (v *viewState) resetPage(userID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.usersPage, userID)
}
