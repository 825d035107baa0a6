//go:build no_automation

package automation

import (
	"errors"
	"log/slog"

	"matter-go-home/internal/controller"
)

var (
	ErrScriptNotFound  = errors.New("script not found")
	ErrInvalidScriptID = errors.New("invalid script id")
	ErrSyntax          = errors.New("lua syntax")
	errDisabled        = errors.New("automation disabled")
)

// ScriptMeta holds user-editable metadata for a script.
type ScriptMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Script is a Lua automation.
type Script struct {
	ID       string     `json:"id"`
	Meta     ScriptMeta `json:"meta"`
	LuaCode  string     `json:"lua_code"`
	FilePath string     `json:"-"`
}

// RunResult is the result of a one-shot script execution.
type RunResult struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs"`
	Duration string   `json:"duration"`
}

// Manager is a no-op stub when automation is disabled.
type Manager struct{}

// NewManager returns a nil manager when automation is disabled.
func NewManager(_ string, _ *slog.Logger) (*Manager, error) { return nil, nil }

// Dir returns "".
func (m *Manager) Dir() string { return "" }

// List returns nil.
func (m *Manager) List() ([]*Script, error) { return nil, nil }

// Get always fails.
func (m *Manager) Get(_ string) (*Script, error) { return nil, errDisabled }

// Save always fails.
func (m *Manager) Save(_ *Script) (*Script, error) { return nil, errDisabled }

// Delete always fails.
func (m *Manager) Delete(_ string) error { return errDisabled }

// CheckSyntax always fails.
func CheckSyntax(_ string) error { return errDisabled }

// Engine is a no-op stub when automation is disabled.
type Engine struct{ manager *Manager }

// NewEngine returns a no-op engine when automation is disabled.
func NewEngine(_ *controller.Controller, mgr *Manager, _ *slog.Logger) *Engine {
	return &Engine{manager: mgr}
}

// Manager returns the stub manager.
func (e *Engine) Manager() *Manager { return e.manager }

// Start is a no-op.
func (e *Engine) Start() {}

// Stop is a no-op.
func (e *Engine) Stop() {}

// Running returns 0.
func (e *Engine) Running() int { return 0 }

// IsRunning returns false.
func (e *Engine) IsRunning(_ string) bool { return false }

// ReloadScript is a no-op.
func (e *Engine) ReloadScript(_ string) error { return nil }

// StopScript is a no-op.
func (e *Engine) StopScript(_ string) {}

// RunScript returns a stub result.
func (e *Engine) RunScript(_ string) *RunResult {
	return &RunResult{OK: false, Error: errDisabled.Error()}
}

// RunLuaCode returns a stub result.
func (e *Engine) RunLuaCode(_ string) *RunResult {
	return &RunResult{OK: false, Error: errDisabled.Error()}
}
