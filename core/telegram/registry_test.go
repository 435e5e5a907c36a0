package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommandsAndAliases(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCommand("/Search", Command{Handler: noop, Description: "search", Aliases: []string{"s"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterCommand("stats", Command{Handler: noop, Description: "stats", AdminOnly: true}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, name := range []string{"/search", "search", "/s", "S"} {
		key, _, ok := reg.LookupCommand(name)
		if !ok || key != "/search" {
			t.Fatalf("LookupCommand(%q) = %q, %v", name, key, ok)
		}
	}
	if _, _, ok := reg.LookupCommand("/missing"); ok {
		t.Fatal("unexpected command")
	}

	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "search" {
		t.Fatalf("visible = %+v", visible)
	}
	if all := reg.ListCommands(false); len(all) != 2 {
		t.Fatalf("all = %+v", all)
	}
}

func TestRegistryRejectsInvalidAndDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCommand("/x", Command{Handler: noop}); err == nil {
		t.Fatal("missing description accepted")
	}
	if err := reg.RegisterCommand("/", Command{Handler: noop, Description: "d"}); err == nil {
		t.Fatal("empty name accepted")
	}
	_ = reg.RegisterCommand("/download", Command{Handler: noop, Description: "d", Aliases: []string{"dl"}})
	if err := reg.RegisterCommand("/dl", Command{Handler: noop, Description: "d"}); err == nil {
		t.Fatal("name colliding with alias accepted")
	}
	if err := reg.RegisterCallback("pg", noop); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if err := reg.RegisterCallback("pg", noop); err == nil {
		t.Fatal("duplicate callback accepted")
	}
	if got := reg.ListCallbacks(); len(got) != 1 || got[0] != "pg" {
		t.Fatalf("callbacks = %v", got)
	}
}
