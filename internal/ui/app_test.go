package ui

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/danhigham/otpfeed/internal/domain"
)

type fakeService struct {
	snap    domain.Snapshot
	forced  int
	cleared int
}

func (f *fakeService) Snapshot() domain.Snapshot { return f.snap }

func (f *fakeService) ForceCheck(context.Context) int {
	f.forced++
	return len(f.snap.Messages)
}

func (f *fakeService) ClearAll() {
	f.cleared++
	f.snap.Messages = nil
}

func (f *fakeService) Diagnostics() domain.Diagnostics {
	return domain.Diagnostics{Stats: f.snap.Stats, MessagesCount: len(f.snap.Messages)}
}

func newTestModel(t *testing.T, svc *fakeService) Model {
	t.Helper()
	var tm tea.Model = NewModel(svc)
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	tm, _ = tm.Update(SplashDoneMsg{})
	tm, _ = tm.Update(StoreUpdatedMsg{})
	return tm.(Model)
}

func press(t *testing.T, m Model, key rune) (Model, tea.Cmd) {
	t.Helper()
	tm, cmd := m.Update(tea.KeyPressMsg{Code: key, Text: string(key)})
	return tm.(Model), cmd
}

func testFeed() *fakeService {
	return &fakeService{snap: domain.Snapshot{
		Messages: []domain.Message{
			{ID: "2", OTP: "654321", Service: "Telegram", PhoneMasked: "+2012•••7890"},
			{ID: "1", OTP: "123456", Service: "WhatsApp", PhoneMasked: "+1555•••4567"},
		},
		Stats: domain.Counters{Status: "✅ Connected", TotalOTPs: 2, LastCheck: "12:00:00", Cycles: 1},
	}}
}

func TestModel_StoreUpdateFillsFeed(t *testing.T) {
	m := newTestModel(t, testFeed())

	if m.splash.IsVisible() {
		t.Error("splash still visible after first cycle and timer")
	}
	sel, ok := m.feed.Selected()
	if !ok || sel.ID != "2" {
		t.Errorf("selected = %+v, want newest message", sel)
	}
	if !m.status.connected() {
		t.Error("status bar not showing connected")
	}
}

func TestModel_SelectionSurvivesRefresh(t *testing.T) {
	svc := testFeed()
	m := newTestModel(t, svc)

	m, _ = press(t, m, 'j')
	if sel, _ := m.feed.Selected(); sel.ID != "1" {
		t.Fatalf("selected = %q after j, want 1", sel.ID)
	}

	svc.snap.Messages = append([]domain.Message{{ID: "3", OTP: "111111"}}, svc.snap.Messages...)
	tm, _ := m.Update(StoreUpdatedMsg{})
	m = tm.(Model)

	if sel, _ := m.feed.Selected(); sel.ID != "1" {
		t.Errorf("selected = %q after refresh, want 1", sel.ID)
	}
}

func TestModel_ForceCheckKey(t *testing.T) {
	svc := testFeed()
	m := newTestModel(t, svc)

	m, cmd := press(t, m, 'r')
	if cmd == nil {
		t.Fatal("r returned no command")
	}
	if !m.checking {
		t.Error("checking = false while refresh pending")
	}
	if _, again := press(t, m, 'r'); again != nil {
		t.Error("second r started another check while one is pending")
	}

	done, ok := cmd().(refreshDoneMsg)
	if !ok {
		t.Fatalf("command returned %T, want refreshDoneMsg", done)
	}
	if svc.forced != 1 || done.count != 2 {
		t.Errorf("forced = %d, count = %d, want 1 and 2", svc.forced, done.count)
	}

	tm, _ := m.Update(done)
	m = tm.(Model)
	if m.checking {
		t.Error("checking still set after refresh finished")
	}
	if !strings.Contains(m.status.notice, "2 messages") {
		t.Errorf("notice = %q", m.status.notice)
	}
}

func TestModel_ClearKey(t *testing.T) {
	svc := testFeed()
	m := newTestModel(t, svc)

	_, cmd := press(t, m, 'c')
	if cmd == nil {
		t.Fatal("c returned no command")
	}
	tm, _ := m.Update(cmd())
	m = tm.(Model)

	if svc.cleared != 1 {
		t.Errorf("ClearAll called %d times, want 1", svc.cleared)
	}
	if _, ok := m.feed.Selected(); ok {
		t.Error("feed still has a selection after clear")
	}
}

func TestModel_Overlays(t *testing.T) {
	m := newTestModel(t, testFeed())

	m, _ = press(t, m, 'd')
	if !m.diagnostics.IsVisible() {
		t.Fatal("d did not open diagnostics")
	}
	if !strings.Contains(m.View().Content, "Scraper") {
		t.Error("diagnostics overlay not rendered")
	}

	tm, _ := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	m = tm.(Model)
	if m.diagnostics.IsVisible() {
		t.Error("esc did not close diagnostics")
	}

	m, _ = press(t, m, 'h')
	if !m.help.IsVisible() {
		t.Error("h did not open help")
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := newTestModel(t, testFeed())

	_, cmd := press(t, m, 'q')
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestSplash_ShowsStartupStatus(t *testing.T) {
	svc := &fakeService{snap: domain.Snapshot{
		Stats: domain.Counters{Status: "❌ Login failed", LastError: "login: panel auth failed (status 401)"},
	}}
	var tm tea.Model = NewModel(svc)
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	tm, _ = tm.Update(StoreUpdatedMsg{})
	m := tm.(Model)

	view := m.splash.View()
	for _, want := range []string{"Login failed", "panel auth failed", "waiting for first check"} {
		if !strings.Contains(view, want) {
			t.Errorf("splash view missing %q", want)
		}
	}

	svc.snap.Stats.Cycles = 1
	tm, _ = m.Update(StoreUpdatedMsg{})
	m = tm.(Model)
	if !m.splash.IsVisible() {
		t.Fatal("splash closed before the minimum display time")
	}
	if strings.Contains(m.splash.View(), "waiting for first check") {
		t.Error("splash still waiting after first cycle")
	}
	tm, _ = m.Update(SplashDoneMsg{})
	if tm.(Model).splash.IsVisible() {
		t.Error("splash visible after first cycle and timer")
	}
}
