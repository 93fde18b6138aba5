package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.mode == ModeHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m *Model) renderMain() string {
	sections := []string{
		m.renderTitle(),
		m.renderContent(),
		m.renderStatus(),
	}
	if m.mode == ModeConfirm {
		sections = append(sections, m.renderPrompt())
	}
	sections = append(sections, m.renderHelpBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderTitle() string {
	title := "histfs"
	if entry := m.currentEntry(); entry != nil {
		title = fmt.Sprintf("histfs - %s", entry.Key)
	}
	return m.theme.TitleStyle.Render(title)
}

// renderContent lays out the file, version and preview panes side by side
func (m *Model) renderContent() string {
	filesWidth := m.width * 2 / 5
	versionsWidth := m.width / 4
	previewWidth := max(m.width-filesWidth-versionsWidth-6, 10)
	height := m.getVisibleLines() + 2

	files := m.paneStyle(PaneFiles).
		Width(filesWidth).
		Height(height).
		Render(m.renderFileList(filesWidth))

	versions := m.paneStyle(PaneVersions).
		Width(versionsWidth).
		Height(height).
		Render(m.renderVersionList(versionsWidth))

	preview := m.theme.PreviewBorderStyle.
		Width(previewWidth).
		Height(height).
		Render(m.renderPreview())

	return lipgloss.JoinHorizontal(lipgloss.Top, files, versions, preview)
}

func (m *Model) paneStyle(pane Pane) lipgloss.Style {
	if m.focus == pane {
		return m.theme.FocusBorderStyle
	}
	return m.theme.BorderStyle
}

func (m *Model) renderFileList(width int) string {
	if len(m.entries) == 0 {
		return m.theme.NormalItemStyle.Render("(no files)")
	}

	lines := []string{m.theme.HeaderStyle.Render("Files")}
	end := min(m.offset+m.getVisibleLines()-1, len(m.entries))

	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderFileEntry(m.entries[i], i == m.cursor, width))
	}

	return strings.Join(lines, "\n")
}

func (m *Model) renderFileEntry(entry *Entry, selected bool, width int) string {
	var style lipgloss.Style
	switch {
	case selected:
		style = m.theme.SelectedItemStyle
	case !entry.Live:
		style = m.theme.DeletedItemStyle
	default:
		style = m.theme.NormalItemStyle
	}

	size := entry.DisplaySize()
	nameWidth := max(width-len(size)-4, 8)
	name := runewidth.FillRight(runewidth.Truncate(entry.DisplayName(), nameWidth, "..."), nameWidth)

	return style.Render(fmt.Sprintf("%s %s %s", entry.Icon(), name, size))
}

func (m *Model) renderVersionList(width int) string {
	if len(m.versions) == 0 {
		return m.theme.NormalItemStyle.Render("(no versions)")
	}

	lines := []string{m.theme.HeaderStyle.Render(fmt.Sprintf("Versions (%d)", len(m.versions)))}
	end := min(m.vOffset+m.getVisibleLines()-1, len(m.versions))

	for i := m.vOffset; i < end; i++ {
		v := m.versions[i]
		line := fmt.Sprintf("%-5s %s", v.Label(), v.DisplayAge())
		line = runewidth.FillRight(runewidth.Truncate(line, width, "..."), width)

		style := m.theme.NormalItemStyle
		if i == m.vCursor && m.focus == PaneVersions {
			style = m.theme.SelectedItemStyle
		}
		lines = append(lines, style.Render(line))
	}

	return strings.Join(lines, "\n")
}

func (m *Model) renderPreview() string {
	entry := m.currentEntry()
	if entry == nil {
		return m.theme.PreviewStyle.Render("No file selected")
	}

	var info strings.Builder
	if version := m.currentVersion(); m.focus == PaneVersions && version != nil {
		fmt.Fprintf(&info, "Version: %s of %s\n", version.Label(), entry.Key)
		fmt.Fprintf(&info, "Size: %s\n", version.DisplaySize())
		fmt.Fprintf(&info, "Created: %s (%s)\n\n", version.DisplayCreated(), version.DisplayAge())
	} else {
		fmt.Fprintf(&info, "File: %s\n", entry.Key)
		if !entry.Live {
			fmt.Fprintf(&info, "Deleted, %d versions kept\n", len(m.versions))
			return m.theme.PreviewStyle.Render(info.String())
		}
		fmt.Fprintf(&info, "Size: %s\n", entry.DisplaySize())
		fmt.Fprintf(&info, "Modified: %s\n\n", entry.DisplayModTime())
	}

	if m.previewError != nil {
		return m.theme.PreviewStyle.Render(info.String()) + "\n" +
			m.theme.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.previewError))
	}
	if m.previewContent == "" {
		info.WriteString("(empty)")
		return m.theme.PreviewStyle.Render(info.String())
	}

	info.WriteString("--- Preview ---\n")

	lines := strings.Split(m.previewContent, "\n")
	maxLines := max(m.getVisibleLines()-6, 1)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "...")
	}
	info.WriteString(strings.Join(lines, "\n"))

	return m.theme.PreviewStyle.Render(info.String())
}

func (m *Model) renderStatus() string {
	left := "0 files"
	if len(m.entries) > 0 {
		left = fmt.Sprintf("%d/%d files", m.cursor+1, len(m.entries))
	}
	if m.focus == PaneVersions && len(m.versions) > 0 {
		left = fmt.Sprintf("%s, version %d/%d", left, m.vCursor+1, len(m.versions))
	}

	right := ""
	if m.errorMsg != "" {
		right = m.theme.ErrorStyle.Render(m.errorMsg)
	} else if m.statusMsg != "" {
		right = m.statusMsg
	}

	spacing := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-4, 0)

	statusLine := left + strings.Repeat(" ", spacing) + right
	return m.theme.StatusBarStyle.Width(m.width).Render(statusLine)
}

func (m *Model) renderPrompt() string {
	if m.pending == nil {
		return ""
	}

	prompt := fmt.Sprintf("Restore %s to v%d? The current content is archived first. (y/n)",
		m.pending.key, m.pending.number)
	return m.theme.PromptStyle.Render(prompt)
}

func (m *Model) renderHelpBar() string {
	return m.theme.HelpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

// renderHelp renders the full help screen
func (m *Model) renderHelp() string {
	sections := []string{
		m.theme.TitleStyle.Render("histfs - Help"),
		"",
		m.help.FullHelpView(m.keys.FullHelp()),
		"",
		m.theme.HeaderStyle.Render("Panes:"),
		"  Files      live files and deleted files that still have history",
		"  Versions   archived versions of the selected file, newest first",
		"  Preview    content of the selected file or version",
		"",
		m.theme.HeaderStyle.Render("Actions:"),
		"  s          archive the current content of the selected file",
		"  r          restore the selected version (asks for confirmation)",
		fmt.Sprintf("  p          prune the selected file down to %d versions", m.keep),
		"",
		m.theme.HelpStyle.Render("Press ? or q to return"),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
