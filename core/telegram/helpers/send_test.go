package helpers

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

type sendContext struct {
	tele.Context
	store map[string]any
	sent  []any
}

func (s *sendContext) Update() tele.Update { return tele.Update{ID: 1} }
func (s *sendContext) Chat() *tele.Chat    { return &tele.Chat{ID: 10} }
func (s *sendContext) Sender() *tele.User  { return &tele.User{ID: 20} }
func (s *sendContext) Get(k string) any    { return s.store[k] }
func (s *sendContext) Set(k string, v any) { s.store[k] = v }

func (s *sendContext) Send(what any, _ ...any) error {
	s.sent = append(s.sent, what)
	return nil
}

func TestSendTextInlineWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	c := &sendContext{store: map[string]any{}}
	if err := SendText(c, "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(c.sent) != 1 || c.sent[0] != "hi" {
		t.Fatalf("sent = %v", c.sent)
	}
}

func TestUpdateMetaAndHandler(t *testing.T) {
	c := &sendContext{store: map[string]any{}}
	meta := UpdateMeta(c)
	if meta.ID != 1 || meta.ChatID != 10 || meta.UserID != 20 {
		t.Fatalf("meta = %+v", meta)
	}
	ctx := WithHandler(c, "search")
	if BuildContext(c) != ctx {
		t.Fatal("handler context not stored")
	}
}
