package ui

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// ErrTooManyRestarts is returned once the UI has crashed more than the allowed number of times.
var ErrTooManyRestarts = errors.New("UI crashed too many times")

// UIFactory builds a fresh model and its program options for every (re)start.
type UIFactory func() (tea.Model, []tea.ProgramOption)

// RecoveryHandler runs the leaderboard program and rebuilds it after a crash.
type RecoveryHandler struct {
	logger       *zap.Logger
	createUI     UIFactory
	restartDelay time.Duration
	maxRestarts  int

	mu       sync.Mutex
	program  *tea.Program
	restarts int
}

// NewRecoveryHandler creates a handler allowing five restarts one second apart.
func NewRecoveryHandler(logger *zap.Logger, createUI UIFactory) *RecoveryHandler {
	return &RecoveryHandler{
		logger:       logger.Named("ui"),
		createUI:     createUI,
		restartDelay: time.Second,
		maxRestarts:  5,
	}
}

// Run blocks until the user quits, ctx is done, or restarts are exhausted.
// Cancelling ctx quits the running program and counts as a normal exit.
func (rh *RecoveryHandler) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, rh.Stop)
	defer stop()

	for {
		err := rh.runOnce()
		if err == nil || ctx.Err() != nil {
			return nil
		}

		rh.mu.Lock()
		rh.restarts++
		restarts := rh.restarts
		rh.mu.Unlock()

		if restarts > rh.maxRestarts {
			return fmt.Errorf("%w (%d): %v", ErrTooManyRestarts, rh.maxRestarts, err)
		}

		rh.logger.Error("UI crashed, will restart",
			zap.Error(err),
			zap.Int("restart_count", restarts),
			zap.Duration("delay", rh.restartDelay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(rh.restartDelay):
		}
	}
}

func (rh *RecoveryHandler) runOnce() (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			rh.logger.Error("UI panic recovered", zap.Any("panic", r), zap.ByteString("stack", stack))
			err = fmt.Errorf("UI panic: %v", r)
		}
	}()

	model, opts := rh.createUI()
	program := tea.NewProgram(model, opts...)

	rh.mu.Lock()
	rh.program = program
	rh.mu.Unlock()

	defer func() {
		rh.mu.Lock()
		rh.program = nil
		rh.mu.Unlock()
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// Stop quits the running program, if any.
func (rh *RecoveryHandler) Stop() {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	if rh.program != nil {
		rh.program.Quit()
	}
}

// Restarts returns how many times the UI has been rebuilt.
func (rh *RecoveryHandler) Restarts() int {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	return rh.restarts
}

// SafeUIWrapper keeps a panicking model from taking the terminal down with it.
type SafeUIWrapper struct {
	model  tea.Model
	logger *zap.Logger
	failed string
}

// NewSafeUIWrapper wraps model.
func NewSafeUIWrapper(model tea.Model, logger *zap.Logger) *SafeUIWrapper {
	return &SafeUIWrapper{model: model, logger: logger.Named("ui")}
}

func (sw *SafeUIWrapper) Init() (cmd tea.Cmd) {
	defer sw.catch("Init", func() { cmd = nil })
	return sw.model.Init()
}

// Update forwards msg; a panic drops the message and its command.
func (sw *SafeUIWrapper) Update(msg tea.Msg) (next tea.Model, cmd tea.Cmd) {
	next = sw
	defer sw.catch("Update", func() { cmd = nil })
	sw.model, cmd = sw.model.Update(msg)
	return sw, cmd
}

func (sw *SafeUIWrapper) View() (view string) {
	defer sw.catch("View", func() {
		view = "Leaderboard view crashed (" + sw.failed + "). Press q to quit."
	})
	return sw.model.View()
}

func (sw *SafeUIWrapper) catch(method string, fallback func()) {
	r := recover()
	if r == nil {
		return
	}
	sw.failed = fmt.Sprint(r)
	sw.logger.Error("UI method panic recovered",
		zap.String("method", method),
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()))
	fallback()
}
