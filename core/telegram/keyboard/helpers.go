package keyboard

import (
	tele "gopkg.in/telebot.v4"

	"github.com/lix74/menubot/core/engine"
)

// FromSpecs converts engine button rows into a telebot inline keyboard.
// Callback data is sent raw, matching what the router expects back.
func FromSpecs(rows [][]engine.ButtonSpec) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Callback}
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}

// RemoveKeyboard returns a markup that hides any reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}
