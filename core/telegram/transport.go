package telegram

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	"github.com/lix74/menubot/core/engine"
	"github.com/lix74/menubot/core/telegram/keyboard"
)

// responder adapts a tele.Context to the engine's reply surface. Callback
// presses edit the originating message in place; Edit falls back to sending
// when the message cannot be edited anymore.
type responder struct {
	c tele.Context
}

func sendOptions(buttons [][]engine.ButtonSpec) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: keyboard.FromSpecs(buttons),
	}
}

func (r responder) Reply(text string, buttons [][]engine.ButtonSpec) error {
	return r.c.Send(text, sendOptions(buttons))
}

func (r responder) Edit(text string, buttons [][]engine.ButtonSpec) error {
	err := r.c.Edit(text, sendOptions(buttons))
	if err == nil || errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	var teleErr *tele.Error
	if errors.Is(err, tele.ErrMessageCantBeEdited) ||
		(errors.As(err, &teleErr) && teleErr.Code == 400) {
		return r.Reply(text, buttons)
	}
	return err
}

// eventFrom builds the engine event for an inbound update.
func eventFrom(c tele.Context, callback bool) *engine.Event {
	ev := &engine.Event{
		Callback: callback,
		Respond:  responder{c: c},
	}
	if user := c.Sender(); user != nil {
		ev.UserID = user.ID
		ev.Username = user.Username
		ev.FirstName = user.FirstName
		ev.LastName = user.LastName
	}
	return ev
}
