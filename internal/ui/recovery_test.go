package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockModel is a test UI model
type mockModel struct {
	panicOnInit   bool
	panicOnUpdate bool
	panicOnView   bool
	updates       int
}

func (m *mockModel) Init() tea.Cmd {
	if m.panicOnInit {
		panic("init panic test")
	}
	return nil
}

func (m *mockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.updates++
	if m.panicOnUpdate {
		panic("update panic test")
	}
	return m, nil
}

func (m *mockModel) View() string {
	if m.panicOnView {
		panic("view panic test")
	}
	return "Test UI"
}

func TestSafeUIWrapper_RecoversPanics(t *testing.T) {
	wrapper := NewSafeUIWrapper(&mockModel{panicOnInit: true, panicOnUpdate: true, panicOnView: true}, zap.NewNop())

	assert.NotPanics(t, func() {
		assert.Nil(t, wrapper.Init())
	})

	var next tea.Model
	assert.NotPanics(t, func() {
		var cmd tea.Cmd
		next, cmd = wrapper.Update(tea.KeyMsg{})
		assert.Nil(t, cmd)
	})
	assert.Same(t, wrapper, next)

	assert.Contains(t, wrapper.View(), "view crashed (view panic test)")
}

func TestSafeUIWrapper_PassesThrough(t *testing.T) {
	inner := &mockModel{}
	wrapper := NewSafeUIWrapper(inner, zap.NewNop())

	_, _ = wrapper.Update(tea.KeyMsg{})
	assert.Equal(t, 1, inner.updates)
	assert.Equal(t, "Test UI", wrapper.View())
}

func TestRecoveryHandler_GivesUpAfterMaxRestarts(t *testing.T) {
	attempts := 0
	handler := NewRecoveryHandler(zap.NewNop(), func() (tea.Model, []tea.ProgramOption) {
		attempts++
		panic("cannot build UI")
	})
	handler.restartDelay = time.Millisecond
	handler.maxRestarts = 2

	err := handler.Run(context.Background())
	require.ErrorIs(t, err, ErrTooManyRestarts)
	assert.Contains(t, err.Error(), "cannot build UI")
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, handler.Restarts())
}

func TestRecoveryHandler_CancelStopsRestarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	handler := NewRecoveryHandler(zap.NewNop(), func() (tea.Model, []tea.ProgramOption) {
		attempts++
		cancel()
		panic("crash during shutdown")
	})

	require.NoError(t, handler.Run(ctx))
	assert.Equal(t, 1, attempts)
	assert.Zero(t, handler.Restarts())
}
