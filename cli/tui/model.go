package tui

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mwantia/histfs"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/log"
)

// previewLimit caps how much of a file or version is loaded for the preview pane.
const previewLimit = 64 * 1024

// Mode represents the current interaction mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeConfirm
	ModeHelp
)

// Pane is the list that currently owns the cursor.
type Pane int

const (
	PaneFiles Pane = iota
	PaneVersions
)

// Model represents the state of the version browser
type Model struct {
	ctx   context.Context
	fsys  *histfs.FileSystem
	log   *log.Logger
	keep  int
	theme *Theme
	keys  KeyMap
	help  help.Model

	// File pane
	entries []*Entry
	cursor  int
	offset  int

	// Version pane, newest first
	versions    []VersionEntry
	versionsKey string
	vCursor     int
	vOffset     int

	focus  Pane
	width  int
	height int

	previewContent string
	previewError   error
	previewGen     int // Generation counter to drop stale previews

	mode    Mode
	pending *pendingRestore

	statusMsg string
	errorMsg  string
}

type pendingRestore struct {
	key    string
	number uint64
}

// NewModel creates a browser over fsys. keep is the retention used by the
// prune key.
func NewModel(ctx context.Context, fsys *histfs.FileSystem, keep int, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.NewNop()
	}
	if keep < 1 {
		keep = 1
	}

	return &Model{
		ctx:   ctx,
		fsys:  fsys,
		log:   logger,
		keep:  keep,
		theme: DefaultTheme(),
		keys:  DefaultKeyMap(),
		help:  help.New(),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.loadFiles()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case filesLoadedMsg:
		m.entries = msg.entries
		m.cursor = clamp(m.cursor, len(m.entries))
		m.offset = scroll(m.cursor, m.offset, m.getVisibleLines()-1)
		return m, tea.Batch(m.loadVersions(), m.updatePreview())

	case versionsLoadedMsg:
		entry := m.currentEntry()
		if entry == nil || entry.Key != msg.key {
			m.log.Debug("Ignoring stale versions for '%s'", msg.key)
			return m, nil
		}
		if m.versionsKey != msg.key {
			m.vCursor = 0
			m.vOffset = 0
		}
		m.versions = msg.versions
		m.versionsKey = msg.key
		m.vCursor = clamp(m.vCursor, len(m.versions))
		if len(m.versions) == 0 && m.focus == PaneVersions {
			m.focus = PaneFiles
		}
		if m.focus == PaneVersions {
			return m, m.updatePreview()
		}
		return m, nil

	case previewLoadedMsg:
		if msg.generation == m.previewGen {
			m.previewContent = msg.content
			m.previewError = msg.err
		} else {
			m.log.Debug("Ignoring stale preview (gen %d, current %d)", msg.generation, m.previewGen)
		}
		return m, nil

	case actionDoneMsg:
		m.statusMsg = msg.status
		m.errorMsg = ""
		return m, m.loadFiles()

	case errorMsg:
		m.errorMsg = string(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input based on current mode
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeConfirm:
		return m.handleConfirmMode(msg)
	case ModeHelp:
		return m.handleHelpMode(msg)
	}
	return m.handleNormalMode(msg)
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mode = ModeHelp
		return m, nil

	case key.Matches(msg, m.keys.Up):
		return m, m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		return m, m.moveCursor(1)

	case key.Matches(msg, m.keys.PageUp):
		return m, m.moveCursor(-10)

	case key.Matches(msg, m.keys.PageDown):
		return m, m.moveCursor(10)

	case key.Matches(msg, m.keys.Top):
		return m, m.moveCursor(-m.listLen())

	case key.Matches(msg, m.keys.Bottom):
		return m, m.moveCursor(m.listLen())

	case key.Matches(msg, m.keys.Enter):
		return m, m.setFocus(PaneVersions)

	case key.Matches(msg, m.keys.Back):
		return m, m.setFocus(PaneFiles)

	case key.Matches(msg, m.keys.Switch):
		if m.focus == PaneFiles {
			return m, m.setFocus(PaneVersions)
		}
		return m, m.setFocus(PaneFiles)

	case key.Matches(msg, m.keys.Refresh):
		m.statusMsg = "Refreshed"
		return m, m.loadFiles()

	case key.Matches(msg, m.keys.Snapshot):
		return m, m.snapshot()

	case key.Matches(msg, m.keys.Restore):
		m.startRestore()
		return m, nil

	case key.Matches(msg, m.keys.Prune):
		return m, m.prune()
	}

	return m, nil
}

// handleConfirmMode waits for y/n on a pending restore
func (m *Model) handleConfirmMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pending := m.pending

	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		m.mode = ModeNormal
		m.pending = nil
		return m, m.restore(pending)
	case "n", "esc", "q":
		m.mode = ModeNormal
		m.pending = nil
		m.statusMsg = "Restore cancelled"
	}

	return m, nil
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Quit), msg.Type == tea.KeyEscape:
		m.mode = ModeNormal
	}
	return m, nil
}

func (m *Model) setFocus(pane Pane) tea.Cmd {
	if pane == m.focus {
		return nil
	}
	if pane == PaneVersions && len(m.versions) == 0 {
		m.statusMsg = "No versions recorded"
		return nil
	}

	m.focus = pane
	return m.updatePreview()
}

func (m *Model) listLen() int {
	if m.focus == PaneVersions {
		return len(m.versions)
	}
	return len(m.entries)
}

// moveCursor moves the cursor of the focused pane by delta, handling bounds
// and scrolling
func (m *Model) moveCursor(delta int) tea.Cmd {
	visibleLines := m.getVisibleLines() - 1 // header row

	if m.focus == PaneVersions {
		if len(m.versions) == 0 {
			return nil
		}
		m.vCursor = clamp(m.vCursor+delta, len(m.versions))
		m.vOffset = scroll(m.vCursor, m.vOffset, visibleLines)
		return m.updatePreview()
	}

	if len(m.entries) == 0 {
		return nil
	}
	previous := m.cursor
	m.cursor = clamp(m.cursor+delta, len(m.entries))
	m.offset = scroll(m.cursor, m.offset, visibleLines)
	if m.cursor == previous {
		return nil
	}

	m.versions = nil
	m.versionsKey = ""
	return tea.Batch(m.loadVersions(), m.updatePreview())
}

func clamp(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

func scroll(cursor, offset, visible int) int {
	if cursor < offset {
		return cursor
	}
	if cursor >= offset+visible {
		return cursor - visible + 1
	}
	return offset
}

// getVisibleLines returns how many rows fit into a list pane
func (m *Model) getVisibleLines() int {
	// Reserve space for title, status bar, help, and borders
	reserved := 8
	available := m.height - reserved
	if available < 5 {
		return 5
	}
	return available
}

func (m *Model) currentEntry() *Entry {
	if m.cursor >= 0 && m.cursor < len(m.entries) {
		return m.entries[m.cursor]
	}
	return nil
}

func (m *Model) currentVersion() *VersionEntry {
	if m.vCursor >= 0 && m.vCursor < len(m.versions) {
		return &m.versions[m.vCursor]
	}
	return nil
}

func (m *Model) startRestore() {
	entry := m.currentEntry()
	version := m.currentVersion()
	if entry == nil || version == nil || m.focus != PaneVersions {
		m.statusMsg = "Select a version to restore"
		return
	}

	m.pending = &pendingRestore{key: entry.Key, number: version.Number}
	m.mode = ModeConfirm
	m.statusMsg = ""
	m.errorMsg = ""
}

type filesLoadedMsg struct {
	entries []*Entry
}

type versionsLoadedMsg struct {
	key      string
	versions []VersionEntry
}

type previewLoadedMsg struct {
	content    string
	err        error
	generation int
}

type actionDoneMsg struct {
	status string
}

type errorMsg string

func (m *Model) loadFiles() tea.Cmd {
	return func() tea.Msg {
		keys, err := m.fsys.ListLogicalFiles(m.ctx)
		if err != nil {
			return errorMsg(fmt.Sprintf("Failed to list files: %v", err))
		}
		history, err := m.fsys.ListHistory(m.ctx)
		if err != nil {
			return errorMsg(fmt.Sprintf("Failed to list history: %v", err))
		}

		live := make([]*data.FileStat, 0, len(keys))
		for _, key := range keys {
			stat, err := m.fsys.Stat(m.ctx, key)
			if err != nil {
				// Removed between listing and stat
				continue
			}
			live = append(live, stat)
		}

		m.log.Debug("Loaded %d live files and %d histories", len(live), len(history))
		return filesLoadedMsg{entries: mergeEntries(live, history)}
	}
}

func (m *Model) loadVersions() tea.Cmd {
	entry := m.currentEntry()
	if entry == nil {
		return nil
	}
	key := entry.Key

	return func() tea.Msg {
		versions, err := m.fsys.ListVersions(m.ctx, key)
		if err != nil {
			return errorMsg(fmt.Sprintf("Failed to list versions: %v", err))
		}

		entries := make([]VersionEntry, 0, len(versions))
		for _, v := range versions {
			entries = append(entries, VersionEntry{Version: v})
		}
		return versionsLoadedMsg{key: key, versions: entries}
	}
}

func (m *Model) updatePreview() tea.Cmd {
	m.previewGen++
	gen := m.previewGen

	entry := m.currentEntry()
	if entry == nil {
		return func() tea.Msg {
			return previewLoadedMsg{generation: gen}
		}
	}
	key := entry.Key

	if m.focus == PaneVersions {
		version := m.currentVersion()
		if version == nil {
			return func() tea.Msg {
				return previewLoadedMsg{generation: gen}
			}
		}
		number := version.Number

		return func() tea.Msg {
			m.log.Debug("Loading preview gen=%d for %s v%d", gen, key, number)
			content, err := m.readVersion(key, number)
			return previewLoadedMsg{content: content, err: err, generation: gen}
		}
	}

	if !entry.Live {
		return func() tea.Msg {
			return previewLoadedMsg{generation: gen}
		}
	}

	return func() tea.Msg {
		m.log.Debug("Loading preview gen=%d for %s", gen, key)
		content, err := m.readLive(key)
		return previewLoadedMsg{content: content, err: err, generation: gen}
	}
}

func (m *Model) readVersion(key string, number uint64) (string, error) {
	rc, err := m.fsys.OpenVersion(m.ctx, key, number)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return readPreview(key, rc)
}

func (m *Model) readLive(key string) (string, error) {
	h, err := m.fsys.Open(m.ctx, key)
	if err != nil {
		return "", err
	}
	defer h.Close()

	return readPreview(key, h)
}

// readPreview loads the head of r and replaces binary content with a placeholder.
func readPreview(name string, r io.Reader) (string, error) {
	head, err := io.ReadAll(io.LimitReader(r, previewLimit))
	if err != nil {
		return "", err
	}

	ct := data.DetectContentType(path.Base(name), head)
	if !data.IsText(ct, head) {
		return fmt.Sprintf("(binary content, %s)", ct), nil
	}
	return string(head), nil
}

func (m *Model) snapshot() tea.Cmd {
	entry := m.currentEntry()
	if entry == nil {
		return nil
	}
	if !entry.Live {
		m.statusMsg = fmt.Sprintf("Cannot snapshot deleted file: %s", entry.Key)
		return nil
	}
	key := entry.Key

	return func() tea.Msg {
		v, err := m.fsys.CreateVersion(m.ctx, key)
		if err != nil {
			return errorMsg(fmt.Sprintf("Failed to snapshot: %v", err))
		}
		if v == nil {
			return actionDoneMsg{status: fmt.Sprintf("Nothing to snapshot for %s", key)}
		}
		return actionDoneMsg{status: fmt.Sprintf("Created %s v%d", key, v.Number)}
	}
}

func (m *Model) restore(pending *pendingRestore) tea.Cmd {
	if pending == nil {
		return nil
	}

	return func() tea.Msg {
		// Restore itself leaves the replaced content unarchived
		if _, err := m.fsys.CreateVersion(m.ctx, pending.key); err != nil {
			return errorMsg(fmt.Sprintf("Failed to archive current content: %v", err))
		}

		found, err := m.fsys.Restore(m.ctx, pending.key, pending.number)
		if err != nil {
			return errorMsg(fmt.Sprintf("Failed to restore: %v", err))
		}
		if !found {
			return errorMsg(fmt.Sprintf("Version v%d of %s no longer exists", pending.number, pending.key))
		}
		return actionDoneMsg{status: fmt.Sprintf("Restored %s to v%d", pending.key, pending.number)}
	}
}

func (m *Model) prune() tea.Cmd {
	entry := m.currentEntry()
	if entry == nil || !entry.History {
		m.statusMsg = "No versions to prune"
		return nil
	}
	key, keep := entry.Key, m.keep

	return func() tea.Msg {
		removed, err := m.fsys.Prune(m.ctx, key, keep)
		if err != nil {
			return errorMsg(fmt.Sprintf("Failed to prune: %v", err))
		}
		return actionDoneMsg{status: fmt.Sprintf("Pruned %d versions of %s (keep %d)", removed, key, keep)}
	}
}
