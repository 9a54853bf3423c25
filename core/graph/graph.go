package graph

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxTitleLen   = 100
	maxContentLen = 4096
	maxButtonText = 64
	maxActionLen  = 128
	buttonPrefix  = "btn_"
)

// Graph owns pages, buttons, actions and settings. All mutators validate
// input before touching state, so a failed call leaves the graph unchanged.
// Safe for concurrent use.
type Graph struct {
	mu        sync.RWMutex
	pages     map[string]*Page
	actions   map[string]*Action
	settings  Settings
	buttonSeq int

	now func() time.Time
}

// New builds a graph from a persisted snapshot. A zero snapshot yields the
// documented defaults. The button id counter is seeded to one past the
// largest numeric suffix found among existing buttons, so ids never collide
// across restarts.
func New(snap Snapshot) *Graph {
	g := &Graph{
		pages:   make(map[string]*Page, len(snap.Pages)),
		actions: make(map[string]*Action, len(snap.Actions)),
		now:     time.Now,
	}
	for id, p := range snap.Pages {
		page := p
		if page.ID == "" {
			page.ID = id
		}
		if page.Buttons == nil {
			page.Buttons = []Button{}
		}
		g.pages[id] = &page
	}
	for id, a := range snap.Actions {
		action := a
		if action.ID == "" {
			action.ID = id
		}
		g.actions[id] = &action
	}
	g.settings = snap.Settings
	if g.settings.WelcomeMessage == "" {
		g.settings.WelcomeMessage = DefaultWelcomeMessage
	}
	if g.settings.MainMenuPageID == "" {
		g.settings.MainMenuPageID = DefaultMainMenuID
	}
	g.buttonSeq = g.maxButtonSuffix() + 1
	return g
}

func (g *Graph) maxButtonSuffix() int {
	max := 0
	for _, page := range g.pages {
		for _, b := range page.Buttons {
			suffix, ok := strings.CutPrefix(b.ID, buttonPrefix)
			if !ok {
				continue
			}
			if n, err := strconv.Atoi(suffix); err == nil && n > max {
				max = n
			}
		}
	}
	return max
}

// Snapshot returns a deep copy of the current state for persistence.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	snap := Snapshot{
		Pages:       make(map[string]Page, len(g.pages)),
		Buttons:     map[string]Button{},
		Actions:     make(map[string]Action, len(g.actions)),
		Settings:    g.settings,
		LastUpdated: g.now(),
	}
	for id, p := range g.pages {
		snap.Pages[id] = clonePage(p)
	}
	for id, a := range g.actions {
		snap.Actions[id] = *a
	}
	return snap
}

func validPageID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return validationErr(CodeInvalidContent, "Title cannot be empty")
	}
	if len(title) > maxTitleLen {
		return validationErr(CodeInvalidContent, "Title too long (max %d characters)", maxTitleLen)
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return validationErr(CodeInvalidContent, "Content cannot be empty")
	}
	if len(content) > maxContentLen {
		return validationErr(CodeInvalidContent, "Content too long (max %d characters)", maxContentLen)
	}
	return nil
}

func validateButtonText(text string) error {
	if strings.TrimSpace(text) == "" {
		return validationErr(CodeInvalidText, "Button text cannot be empty")
	}
	if len(text) > maxButtonText {
		return validationErr(CodeInvalidText, "Button text too long (max %d characters)", maxButtonText)
	}
	return nil
}

func validateAction(action string) error {
	if strings.TrimSpace(action) == "" {
		return validationErr(CodeInvalidAction, "Action cannot be empty")
	}
	if len(action) > maxActionLen {
		return validationErr(CodeInvalidAction, "Action too long (max %d characters)", maxActionLen)
	}
	return nil
}

// CreatePage adds a new page with an empty button list.
func (g *Graph) CreatePage(id, title, content string) error {
	if !validPageID(id) {
		return validationErr(CodeInvalidID, "Invalid page id: use letters, digits, _ and - only")
	}
	if err := validateTitle(title); err != nil {
		return err
	}
	if err := validateContent(content); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.pages[id]; exists {
		return validationErr(CodeDuplicateID, "Page %q already exists", id)
	}
	g.pages[id] = &Page{
		ID:        id,
		Title:     title,
		Content:   content,
		Buttons:   []Button{},
		CreatedAt: g.now(),
	}
	return nil
}

// UpdatePage replaces title and content of an existing page.
func (g *Graph) UpdatePage(id, title, content string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	if err := validateContent(content); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	page, ok := g.pages[id]
	if !ok {
		return notFoundErr("page", id)
	}
	page.Title = title
	page.Content = content
	page.UpdatedAt = g.now()
	return nil
}

// AddButton appends a button to the page and returns the assigned id.
func (g *Graph) AddButton(pageID, text, action string) (string, error) {
	if err := validateButtonText(text); err != nil {
		return "", err
	}
	if err := validateAction(action); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	page, ok := g.pages[pageID]
	if !ok {
		return "", notFoundErr("page", pageID)
	}
	for _, b := range page.Buttons {
		if b.Text == text {
			return "", validationErr(CodeDuplicateButtonText, "A button named %q already exists on this page", text)
		}
	}
	id := buttonPrefix + strconv.Itoa(g.buttonSeq)
	g.buttonSeq++
	page.Buttons = append(page.Buttons, Button{
		ID:        id,
		Text:      text,
		Action:    action,
		CreatedAt: g.now(),
	})
	page.UpdatedAt = g.now()
	return id, nil
}

// UpdateButton rewrites text and action of a button found by full-graph scan.
func (g *Graph) UpdateButton(buttonID, text, action string) error {
	if err := validateButtonText(text); err != nil {
		return err
	}
	if err := validateAction(action); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, page := range g.pages {
		for i := range page.Buttons {
			if page.Buttons[i].ID != buttonID {
				continue
			}
			for j := range page.Buttons {
				if j != i && page.Buttons[j].Text == text {
					return validationErr(CodeDuplicateButtonText, "A button named %q already exists on this page", text)
				}
			}
			page.Buttons[i].Text = text
			page.Buttons[i].Action = action
			page.Buttons[i].UpdatedAt = g.now()
			page.UpdatedAt = g.now()
			return nil
		}
	}
	return notFoundErr("button", buttonID)
}

// DeleteButton removes a button from its owning page only.
func (g *Graph) DeleteButton(buttonID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, page := range g.pages {
		for i := range page.Buttons {
			if page.Buttons[i].ID != buttonID {
				continue
			}
			page.Buttons = append(page.Buttons[:i], page.Buttons[i+1:]...)
			page.UpdatedAt = g.now()
			return nil
		}
	}
	return notFoundErr("button", buttonID)
}

// FindButton locates a button and its owning page id via full-graph scan.
func (g *Graph) FindButton(buttonID string) (string, Button, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, page := range g.pages {
		for _, b := range page.Buttons {
			if b.ID == buttonID {
				return id, b, true
			}
		}
	}
	return "", Button{}, false
}

// CreateAction registers a reusable action. URL actions mirror content
// into the url field.
func (g *Graph) CreateAction(id string, typ ActionType, content string) error {
	if !validPageID(id) {
		return validationErr(CodeInvalidID, "Invalid action id: use letters, digits, _ and - only")
	}
	if !ValidActionType(typ) {
		return validationErr(CodeInvalidType, "Invalid action type %q: use message, page, url or command", typ)
	}
	if err := validateContent(content); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.actions[id]; exists {
		return validationErr(CodeDuplicateID, "Action %q already exists", id)
	}
	action := &Action{
		ID:        id,
		Type:      typ,
		Content:   content,
		CreatedAt: g.now(),
	}
	if typ == ActionURL {
		action.URL = content
	}
	g.actions[id] = action
	return nil
}

// UpdateAction rewrites type and content of an existing action.
func (g *Graph) UpdateAction(id string, typ ActionType, content string) error {
	if !ValidActionType(typ) {
		return validationErr(CodeInvalidType, "Invalid action type %q: use message, page, url or command", typ)
	}
	if err := validateContent(content); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	action, ok := g.actions[id]
	if !ok {
		return notFoundErr("action", id)
	}
	action.Type = typ
	action.Content = content
	if typ == ActionURL {
		action.URL = content
	} else {
		action.URL = ""
	}
	action.UpdatedAt = g.now()
	return nil
}

// DeleteAction removes an action. Buttons referencing it dangle by design;
// pressing them reports an unroutable token.
func (g *Graph) DeleteAction(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.actions[id]; !ok {
		return notFoundErr("action", id)
	}
	delete(g.actions, id)
	return nil
}

// Action returns a copy of the action with the given id.
func (g *Graph) Action(id string) (Action, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.actions[id]
	if !ok {
		return Action{}, false
	}
	return *a, true
}

// Actions returns all actions sorted by id.
func (g *Graph) Actions() []Action {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Action, 0, len(g.actions))
	for _, a := range g.actions {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetMainMenu points the main menu at an existing page.
func (g *Graph) SetMainMenu(pageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pages[pageID]; !ok {
		return notFoundErr("page", pageID)
	}
	g.settings.MainMenuPageID = pageID
	return nil
}

// SetWelcomeMessage replaces the welcome text shown by /start.
func (g *Graph) SetWelcomeMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return validationErr(CodeInvalidContent, "Welcome message cannot be empty")
	}
	if len(text) > 1000 {
		return validationErr(CodeInvalidContent, "Welcome message too long (max 1000 characters)")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings.WelcomeMessage = text
	return nil
}

// Settings returns a copy of the current settings.
func (g *Graph) Settings() Settings {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settings
}

// Page returns a copy of the page with the given id.
func (g *Graph) Page(id string) (Page, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.pages[id]
	if !ok {
		return Page{}, false
	}
	return clonePage(p), true
}

// Pages returns all pages sorted by id.
func (g *Graph) Pages() []Page {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Page, 0, len(g.pages))
	for _, p := range g.pages {
		out = append(out, clonePage(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResolvePage returns the requested page, falling back to the main menu,
// and self-heals an empty or corrupted graph by recreating the default page.
// The second result reports whether the graph was mutated and needs saving.
func (g *Graph) ResolvePage(pageID string) (Page, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.pages[pageID]; ok {
		return clonePage(p), false
	}
	if p, ok := g.pages[g.settings.MainMenuPageID]; ok {
		return clonePage(p), false
	}
	def := &Page{
		ID:        DefaultMainMenuID,
		Title:     DefaultPageTitle,
		Content:   DefaultPageContent,
		Buttons:   []Button{},
		CreatedAt: g.now(),
	}
	g.pages[def.ID] = def
	g.settings.MainMenuPageID = def.ID
	return clonePage(def), true
}

// IsMainMenu reports whether pageID is the configured main menu.
func (g *Graph) IsMainMenu(pageID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return pageID == g.settings.MainMenuPageID
}

// Stats summarizes graph size for the admin panels.
type Stats struct {
	Pages   int
	Buttons int
	Actions int
}

// Stats counts pages, buttons and actions.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := Stats{Pages: len(g.pages), Actions: len(g.actions)}
	for _, p := range g.pages {
		s.Buttons += len(p.Buttons)
	}
	return s
}
