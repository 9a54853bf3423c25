package graph

import "time"

// ActionType enumerates what happens when an action is invoked.
type ActionType string

const (
	// ActionMessage renders the action content as a templated message.
	ActionMessage ActionType = "message"
	// ActionPage navigates to the page named by the action content.
	ActionPage ActionType = "page"
	// ActionURL renders a link to the stored URL.
	ActionURL ActionType = "url"
	// ActionCommand dispatches an internal command by name.
	ActionCommand ActionType = "command"
)

// ValidActionType reports whether t is one of the enumerated kinds.
func ValidActionType(t ActionType) bool {
	switch t {
	case ActionMessage, ActionPage, ActionURL, ActionCommand:
		return true
	}
	return false
}

// Button belongs to exactly one page. Relocation is delete and recreate.
type Button struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Page is a node of the content graph with an ordered button list.
type Page struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Buttons   []Button  `json:"buttons"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Action is a reusable behavior referenced from button action tokens,
// either bare (`contact`) or parametrized (`contact:params`).
type Action struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	Content   string     `json:"content"`
	URL       string     `json:"url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// Settings holds graph-wide configuration.
type Settings struct {
	WelcomeMessage string `json:"welcome_message"`
	MainMenuPageID string `json:"main_menu_page"`
}

// Snapshot is the serialized form of the whole graph, one JSON document.
// The top-level buttons key is reserved and always empty; buttons live
// inside their owning page.
type Snapshot struct {
	Pages       map[string]Page   `json:"pages"`
	Buttons     map[string]Button `json:"buttons"`
	Actions     map[string]Action `json:"actions"`
	Settings    Settings          `json:"settings"`
	LastUpdated time.Time         `json:"last_updated"`
}

const (
	// DefaultWelcomeMessage greets users who have no custom welcome configured.
	DefaultWelcomeMessage = "Welcome! Use the buttons to navigate."
	// DefaultMainMenuID is the page id used when no main menu is configured.
	DefaultMainMenuID = "main"
	// DefaultPageTitle is the title of the self-healed main page.
	DefaultPageTitle = "Main Menu"
	// DefaultPageContent is the content of the self-healed main page.
	DefaultPageContent = "Welcome! Use /editor to configure the bot."
)

// DefaultSnapshot returns the document written on first load.
func DefaultSnapshot(now time.Time) Snapshot {
	return Snapshot{
		Pages: map[string]Page{
			DefaultMainMenuID: {
				ID:        DefaultMainMenuID,
				Title:     DefaultPageTitle,
				Content:   DefaultPageContent,
				Buttons:   []Button{},
				CreatedAt: now,
			},
		},
		Buttons: map[string]Button{},
		Actions: map[string]Action{},
		Settings: Settings{
			WelcomeMessage: DefaultWelcomeMessage,
			MainMenuPageID: DefaultMainMenuID,
		},
		LastUpdated: now,
	}
}

func clonePage(p *Page) Page {
	out := *p
	out.Buttons = append([]Button(nil), p.Buttons...)
	return out
}
