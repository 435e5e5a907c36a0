// Package callbacks decodes inline button data.
//
// Buttons built with a Unique carry "\f<unique>|<payload>". Once telebot has
// matched a unique endpoint, Callback.Unique is set and Data holds only the
// payload. Data decodes both forms.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Data is a decoded callback: the button family and its payload.
type Data struct {
	Unique  string
	Payload string
}

// Parse decodes cb. A nil callback yields zero Data.
func Parse(cb *tele.Callback) Data {
	if cb == nil {
		return Data{}
	}
	if cb.Unique != "" {
		return Data{Unique: cb.Unique, Payload: cb.Data}
	}
	unique, payload, _ := strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return Data{Unique: strings.TrimSpace(unique), Payload: payload}
}

// From decodes the callback of the current update.
func From(c tele.Context) Data { return Parse(c.Callback()) }

// NameIndex splits a payload shaped "<name>:<index>". The index must be a
// non-negative integer.
func (d Data) NameIndex() (string, int, error) {
	name, raw, ok := strings.Cut(d.Payload, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", 0, strconv.ErrSyntax
	}
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err != nil:
		return "", 0, err
	case idx < 0:
		return "", 0, strconv.ErrRange
	}
	return name, idx, nil
}
