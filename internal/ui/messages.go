package ui

import tea "charm.land/bubbletea/v2"

// StoreUpdatedMsg signals that the store state has changed.
type StoreUpdatedMsg struct{}

// refreshDoneMsg reports the feed size after a forced check.
type refreshDoneMsg struct {
	count int
}

// clearedMsg follows a clear action.
type clearedMsg struct{}

// SplashDoneMsg signals that the splash screen timeout has elapsed.
type SplashDoneMsg struct{}

// clockTickMsg triggers a status bar time refresh.
type clockTickMsg struct{}

// StoreUpdatedCmd returns a command that emits StoreUpdatedMsg.
func StoreUpdatedCmd() tea.Msg {
	return StoreUpdatedMsg{}
}
