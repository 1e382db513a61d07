package refdata

import "testing"

func TestUsers(t *testing.T) {
	users := NewUsers()
	if err := users.Add(User{ID: 1, Name: "trader"}); err != nil {
		t.Fatal(err)
	}
	if err := users.Add(User{ID: 1, Name: "dup"}); err == nil {
		t.Fatal("duplicate user id should be rejected")
	}
	if err := users.Add(User{Name: "zero"}); err == nil {
		t.Fatal("zero user id should be rejected")
	}

	if !users.IsValidUser(1) || users.IsValidUser(2) {
		t.Fatal("user validity lookup mismatch")
	}
	user, ok := users.User(1)
	if !ok || user.Name != "trader" {
		t.Fatalf("user lookup mismatch: %+v", user)
	}
	if users.Count() != 1 {
		t.Fatalf("count mismatch: %d", users.Count())
	}
}

func TestInstruments(t *testing.T) {
	instruments := NewInstruments()
	err := instruments.Add(Instrument{
		Cusip:      "912828U40",
		SecurityID: 1,
		Name:       "UST 2Y",
		Enabled:    true,
		MinSize:    100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := instruments.Add(Instrument{Cusip: "912828U40"}); err == nil {
		t.Fatal("duplicate cusip should be rejected")
	}

	if !instruments.IsValidCusip("912828U40") {
		t.Fatal("cusip should be valid")
	}
	if instruments.IsEnabled("unknown") {
		t.Fatal("unknown cusip should not be enabled")
	}
	if instruments.MinSize("912828U40") != 100 {
		t.Fatal("min size mismatch")
	}
	if instruments.MinSize("unknown") != 0 {
		t.Fatal("unknown cusip min size should be 0")
	}

	if !instruments.SetEnabled("912828U40", false) {
		t.Fatal("set enabled should succeed")
	}
	if instruments.IsEnabled("912828U40") {
		t.Fatal("instrument should be disabled")
	}
}

func TestView(t *testing.T) {
	users := NewUsers()
	if err := users.Add(User{ID: 1, Name: "trader"}); err != nil {
		t.Fatal(err)
	}
	instruments := NewInstruments()
	if err := instruments.Add(Instrument{Cusip: "912828U40", SecurityID: 1, Enabled: true}); err != nil {
		t.Fatal(err)
	}

	view := NewView(users, instruments)
	if !view.IsValidUser(1) || !view.IsValidCusip("912828U40") {
		t.Fatal("view lookups should delegate to both stores")
	}
}
