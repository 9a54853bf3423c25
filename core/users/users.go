package users

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Role levels.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Permission names.
const (
	PermViewPages     = "view_pages"
	PermEditContent   = "edit_content"
	PermViewAnalytics = "view_analytics"
	PermAll           = "all"
)

const (
	maxPagesVisited   = 50
	maxButtonsClicked = 100
)

// User is one registered chat participant.
type User struct {
	ID                int64          `json:"-"`
	Username          string         `json:"username,omitempty"`
	FirstName         string         `json:"first_name,omitempty"`
	LastName          string         `json:"last_name,omitempty"`
	Role              string         `json:"role"`
	RegisteredAt      time.Time      `json:"registered_at"`
	LastSeen          time.Time      `json:"last_seen"`
	TotalInteractions int            `json:"total_interactions"`
	PagesVisited      []string       `json:"pages_visited"`
	ButtonsClicked    []string       `json:"buttons_clicked"`
	CommandsUsed      map[string]int `json:"commands_used,omitempty"`
}

// FullName joins first and last name for display and search.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// RoleDef holds the permission set of a role.
type RoleDef struct {
	Permissions []string `json:"permissions"`
}

// Document is the serialized users store.
type Document struct {
	Users       map[string]User    `json:"users"`
	Roles       map[string]RoleDef `json:"roles"`
	LastUpdated time.Time          `json:"last_updated"`
}

// DefaultRoles returns the built-in role table.
func DefaultRoles() map[string]RoleDef {
	return map[string]RoleDef{
		RoleUser:  {Permissions: []string{PermViewPages}},
		RoleStaff: {Permissions: []string{PermViewPages, PermEditContent, PermViewAnalytics}},
		RoleAdmin: {Permissions: []string{PermAll}},
	}
}

// DefaultDocument returns the document written on first load.
func DefaultDocument(now time.Time) Document {
	return Document{
		Users:       map[string]User{},
		Roles:       DefaultRoles(),
		LastUpdated: now,
	}
}

// ValidRole reports whether name is one of the three known roles.
func ValidRole(name string) bool {
	switch name {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Directory owns registered users and their roles. The admin-id cache is
// recomputed after every role change so it always matches the role data.
// Safe for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	users    map[int64]*User
	roles    map[string]RoleDef
	adminIDs map[int64]struct{}
	now      func() time.Time
}

// NewDirectory builds a directory from a persisted document.
func NewDirectory(doc Document) *Directory {
	d := &Directory{
		users:    make(map[int64]*User, len(doc.Users)),
		roles:    doc.Roles,
		adminIDs: make(map[int64]struct{}),
		now:      time.Now,
	}
	if d.roles == nil {
		d.roles = DefaultRoles()
	}
	for key, u := range doc.Users {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		user := u
		user.ID = id
		if user.Role == "" {
			user.Role = RoleUser
		}
		d.users[id] = &user
	}
	d.syncAdminsLocked()
	return d
}

// Snapshot returns a deep copy of the current state for persistence.
func (d *Directory) Snapshot() Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc := Document{
		Users:       make(map[string]User, len(d.users)),
		Roles:       make(map[string]RoleDef, len(d.roles)),
		LastUpdated: d.now(),
	}
	for id, u := range d.users {
		user := *u
		user.PagesVisited = append([]string(nil), u.PagesVisited...)
		user.ButtonsClicked = append([]string(nil), u.ButtonsClicked...)
		if u.CommandsUsed != nil {
			user.CommandsUsed = make(map[string]int, len(u.CommandsUsed))
			for k, v := range u.CommandsUsed {
				user.CommandsUsed[k] = v
			}
		}
		doc.Users[strconv.FormatInt(id, 10)] = user
	}
	for name, def := range d.roles {
		doc.Roles[name] = RoleDef{Permissions: append([]string(nil), def.Permissions...)}
	}
	return doc
}

// Register stores a new user once. Returns true when the user was created.
func (d *Directory) Register(id int64, username, firstName, lastName string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.users[id]; exists {
		return false
	}
	now := d.now()
	d.users[id] = &User{
		ID:             id,
		Username:       strings.TrimPrefix(username, "@"),
		FirstName:      firstName,
		LastName:       lastName,
		Role:           RoleUser,
		RegisteredAt:   now,
		LastSeen:       now,
		PagesVisited:   []string{},
		ButtonsClicked: []string{},
	}
	return true
}

// BootstrapAdmin grants admin to id when no admin exists yet. One-shot rule
// for the very first user; returns true when the grant happened.
func (d *Directory) BootstrapAdmin(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.adminIDs) > 0 {
		return false
	}
	user, ok := d.users[id]
	if !ok {
		return false
	}
	user.Role = RoleAdmin
	d.syncAdminsLocked()
	return true
}

func (d *Directory) touchLocked(u *User) {
	u.LastSeen = d.now()
	u.TotalInteractions++
}

// TrackPageView records a page visit, keeping the per-user list capped.
func (d *Directory) TrackPageView(id int64, pageID string) {
	if pageID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return
	}
	d.touchLocked(u)
	u.PagesVisited = appendCapped(u.PagesVisited, pageID, maxPagesVisited)
}

// TrackButtonClick records a button press by label, capped per user.
func (d *Directory) TrackButtonClick(id int64, buttonText string) {
	if buttonText == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return
	}
	d.touchLocked(u)
	u.ButtonsClicked = appendCapped(u.ButtonsClicked, buttonText, maxButtonsClicked)
}

// TrackCommand counts a command invocation.
func (d *Directory) TrackCommand(id int64, command string) {
	if command == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return
	}
	d.touchLocked(u)
	if u.CommandsUsed == nil {
		u.CommandsUsed = make(map[string]int)
	}
	u.CommandsUsed[command]++
}

func appendCapped(list []string, value string, cap int) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	list = append(list, value)
	if len(list) > cap {
		list = list[1:]
	}
	return list
}

// Role returns the user's role, defaulting to user for unknown ids.
func (d *Directory) Role(id int64) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.users[id]; ok {
		return u.Role
	}
	return RoleUser
}

// SetRole changes a user's role and recomputes the admin-id cache.
func (d *Directory) SetRole(id int64, role string) bool {
	if !ValidRole(role) {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return false
	}
	u.Role = role
	d.syncAdminsLocked()
	return true
}

func (d *Directory) syncAdminsLocked() {
	d.adminIDs = make(map[int64]struct{})
	for id, u := range d.users {
		if u.Role == RoleAdmin {
			d.adminIDs[id] = struct{}{}
		}
	}
}

// HasPermission checks the user's role against the permission table.
// Admin implicitly holds every permission.
func (d *Directory) HasPermission(id int64, permission string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	role := RoleUser
	if u, ok := d.users[id]; ok {
		role = u.Role
	}
	if role == RoleAdmin {
		return true
	}
	def, ok := d.roles[role]
	if !ok {
		return false
	}
	for _, p := range def.Permissions {
		if p == PermAll || p == permission {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds the admin role.
func (d *Directory) IsAdmin(id int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.adminIDs[id]
	return ok
}

// AdminIDs returns the cached admin set, sorted.
func (d *Directory) AdminIDs() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]int64, 0, len(d.adminIDs))
	for id := range d.adminIDs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns a copy of the user with the given id.
func (d *Directory) Get(id int64) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// Lookup resolves a numeric id or a username, with or without a leading @.
func (d *Directory) Lookup(idOrUsername string) (User, bool) {
	term := strings.TrimSpace(idOrUsername)
	if term == "" {
		return User{}, false
	}
	if id, err := strconv.ParseInt(term, 10, 64); err == nil {
		return d.Get(id)
	}
	term = strings.TrimPrefix(term, "@")
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Username, term) {
			return cloneUser(u), true
		}
	}
	return User{}, false
}

// Search returns users whose username or name contains term, sorted by id.
func (d *Directory) Search(term string) []User {
	term = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(term), "@"))
	if term == "" {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []User
	for _, u := range d.users {
		if strings.Contains(strings.ToLower(u.Username), term) ||
			strings.Contains(strings.ToLower(u.FirstName), term) ||
			strings.Contains(strings.ToLower(u.LastName), term) ||
			strings.Contains(strings.ToLower(u.FullName()), term) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns every user sorted by registration time, newest first.
func (d *Directory) All() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RegisteredAt.After(out[j].RegisteredAt)
	})
	return out
}

// Count returns the number of registered users.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// RoleCounts tallies users per role.
func (d *Directory) RoleCounts() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	counts := map[string]int{RoleUser: 0, RoleStaff: 0, RoleAdmin: 0}
	for _, u := range d.users {
		counts[u.Role]++
	}
	return counts
}

// ActiveSince counts users seen after the cutoff.
func (d *Directory) ActiveSince(cutoff time.Time) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, u := range d.users {
		if u.LastSeen.After(cutoff) {
			n++
		}
	}
	return n
}

func cloneUser(u *User) User {
	out := *u
	out.PagesVisited = append([]string(nil), u.PagesVisited...)
	out.ButtonsClicked = append([]string(nil), u.ButtonsClicked...)
	if u.CommandsUsed != nil {
		out.CommandsUsed = make(map[string]int, len(u.CommandsUsed))
		for k, v := range u.CommandsUsed {
			out.CommandsUsed[k] = v
		}
	}
	return out
}
