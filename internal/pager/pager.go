// Package pager computes cursor moves and keyboard layouts for the track
// browser. It has no side effects; callers render the result.
package pager

import (
	"fmt"
	"strings"
)

// Action is a browser button press.
type Action int

const (
	// ActionNone leaves the cursor unchanged.
	ActionNone Action = iota
	// ActionForward moves to the next track.
	ActionForward
	// ActionBackward moves to the previous track.
	ActionBackward
	// ActionSelect starts the download of the current track.
	ActionSelect
	// ActionProcessing is the inert press on the disabled "processing" button.
	ActionProcessing
)

var actionNames = map[Action]string{
	ActionNone:       "none",
	ActionForward:    "forward",
	ActionBackward:   "backward",
	ActionSelect:     "select",
	ActionProcessing: "processing",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return ActionNone, fmt.Errorf("pager: unknown action %q", s)
}

// Next returns the cursor after applying a to a list of n tracks positioned at c.
func Next(n, c int, a Action) int {
	if n <= 0 {
		return 0
	}
	switch a {
	case ActionForward:
		return min(c+1, n-1)
	case ActionBackward:
		return max(c-1, 0)
	default:
		return c
	}
}

// Labels used on browser buttons.
const (
	LabelBackward   = "⬅️"
	LabelForward    = "➡️"
	LabelProcessing = "⏳ Processing..."
)

// Button is one inline button of the layout. Index is the cursor the button
// was rendered for.
type Button struct {
	Label    string
	Action   Action
	Index    int
	Disabled bool
}

// Layout is a list of keyboard rows.
type Layout [][]Button

// Buttons flattens the layout.
func (l Layout) Buttons() []Button {
	var out []Button
	for _, row := range l {
		out = append(out, row...)
	}
	return out
}

// Keyboard returns the layout for a list of n tracks at cursor c.
func Keyboard(n, c int, locked bool) Layout {
	if locked {
		return Layout{{{Label: LabelProcessing, Action: ActionProcessing, Index: c, Disabled: true}}}
	}
	row := make([]Button, 0, 3)
	if c > 0 {
		row = append(row, Button{Label: LabelBackward, Action: ActionBackward, Index: c})
	}
	row = append(row, Button{Label: fmt.Sprintf("%d/%d", c+1, n), Action: ActionSelect, Index: c})
	if c < n-1 {
		row = append(row, Button{Label: LabelForward, Action: ActionForward, Index: c})
	}
	return Layout{row}
}

// Page is the outcome of a press: the cursor to render and its keyboard.
type Page struct {
	Cursor int
	Layout Layout
}

// Apply combines Next and Keyboard.
func Apply(n, c int, a Action, locked bool) Page {
	next := c
	if !locked {
		next = Next(n, c, a)
	}
	return Page{Cursor: next, Layout: Keyboard(n, next, locked)}
}
