// Package terminal runs an external text editor on a document's exported
// markup inside a pseudo-terminal, streaming its output to the frontend.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/creack/pty"
)

var ErrNoSession = errors.New("no active terminal session")

// Options configures a Manager. Empty fields get defaults.
type Options struct {
	Editor string // default $EDITOR, then nvim
	OnData func(data []byte)
	// OnExit runs after the editor quits. exitLine is the cursor line for
	// vim-family editors, 0 otherwise.
	OnExit func(docID string, exitLine int)
}

// session is one running editor process.
type session struct {
	docID string
	cmd   *exec.Cmd
	ptmx  *os.File
	// vim-family editors write their final cursor line here
	cursorFile string
}

func (s *session) kill() {
	s.ptmx.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
}

// exitLine reads and removes the cursor file.
func (s *session) exitLine() int {
	if s.cursorFile == "" {
		return 0
	}
	defer os.Remove(s.cursorFile)
	data, err := os.ReadFile(s.cursorFile)
	if err != nil {
		return 0
	}
	line, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return line
}

// Manager owns at most one editor session at a time.
type Manager struct {
	opts   Options
	editor string
	path   string // login-shell PATH, resolved once

	mu   sync.Mutex
	cur  *session
	cols uint16 // size applied to the next session
	rows uint16
}

func New(opts Options) *Manager {
	name := opts.Editor
	if name == "" {
		name = os.Getenv("EDITOR")
	}
	if name == "" {
		name = "nvim"
	}
	return &Manager{
		opts:   opts,
		editor: resolveEditor(name),
		path:   loginShellPath(),
		cols:   80,
		rows:   24,
	}
}

// resolveEditor finds the editor binary. Desktop apps start without the
// shell's PATH, so common install prefixes are tried as well.
func resolveEditor(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	dirs := []string{"/opt/homebrew/bin", "/usr/local/bin", "/run/current-system/sw/bin"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"), filepath.Join(home, ".nix-profile", "bin"))
	}
	for _, dir := range dirs {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return name
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func loginShellPath() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return ""
	}
	out, err := exec.Command(shell, "-lc", "echo $PATH").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func isVim(editor string) bool {
	base := filepath.Base(editor)
	return base == "vi" || strings.HasSuffix(base, "vim")
}

// editorArgs builds the command line. Vim-family editors open at line and
// record the cursor line on exit into cursorFile.
func editorArgs(editor, file string, line int, cursorFile string) []string {
	if !isVim(editor) {
		return []string{file}
	}
	var args []string
	if line > 0 {
		args = append(args, "+"+strconv.Itoa(line))
	}
	autocmd := fmt.Sprintf("autocmd VimLeave * call writefile([line('.')], '%s')", cursorFile)
	return append(args, "-c", autocmd, file)
}

// editorEnv replaces PATH with path when set and enables 24-bit color.
func editorEnv(base []string, path string) []string {
	env := make([]string, 0, len(base)+3)
	for _, kv := range base {
		if path != "" && strings.HasPrefix(kv, "PATH=") {
			continue
		}
		env = append(env, kv)
	}
	if path != "" {
		env = append(env, "PATH="+path)
	}
	return append(env, "TERM=xterm-256color", "COLORTERM=truecolor")
}

// Edit starts the editor on filePath for docID. A running session is killed
// first and does not report its exit.
func (m *Manager) Edit(docID, filePath string, line int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cur != nil {
		m.cur.kill()
		m.cur = nil
	}

	s := &session{docID: docID}
	if isVim(m.editor) {
		s.cursorFile = filepath.Join(os.TempDir(), fmt.Sprintf("blockpad_cursor_%d", os.Getpid()))
		os.Remove(s.cursorFile)
	}
	s.cmd = exec.Command(m.editor, editorArgs(m.editor, filePath, line, s.cursorFile)...)
	s.cmd.Env = editorEnv(os.Environ(), m.path)

	ptmx, err := pty.StartWithSize(s.cmd, &pty.Winsize{Cols: m.cols, Rows: m.rows})
	if err != nil {
		return fmt.Errorf("start editor %s: %w", m.editor, err)
	}
	s.ptmx = ptmx
	m.cur = s

	go m.pump(s)
	return nil
}

// pump streams output until the PTY closes, then reports the exit if s is
// still the current session.
func (m *Manager) pump(s *session) {
	buf := make([]byte, 32*1024)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 && m.opts.OnData != nil {
			m.opts.OnData(append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			break
		}
	}

	m.mu.Lock()
	current := m.cur == s
	if current {
		m.cur = nil
		s.ptmx.Close()
		s.cmd.Wait()
	}
	m.mu.Unlock()

	if current && m.opts.OnExit != nil {
		m.opts.OnExit(s.docID, s.exitLine())
	}
}

// Write forwards keystrokes to the editor.
func (m *Manager) Write(data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ErrNoSession
	}
	_, err := io.WriteString(m.cur.ptmx, data)
	return err
}

// Resize applies to the running session and to later ones.
func (m *Manager) Resize(cols, rows uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cols, m.rows = cols, rows
	if m.cur == nil {
		return nil
	}
	return pty.Setsize(m.cur.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur != nil
}

// DocumentID returns the document being edited, or "".
func (m *Manager) DocumentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ""
	}
	return m.cur.docID
}

// Close kills the current session without reporting an exit.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		m.cur.kill()
		m.cur = nil
	}
}
