package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"menubox/internal/domain"
	"menubox/internal/logging"
	"menubox/internal/service"
)

// Port is the TUI-facing subset of the pipeline.
type Port interface {
	SearchRestaurant(ctx context.Context, name, location string) (*service.MenuResult, error)
	Recommend(ctx context.Context, req service.RecommendRequest) (*domain.RecommendationResult, error)
}

type view int

const (
	viewMenu view = iota
	viewRecommendations
)

type menuMsg struct {
	result *service.MenuResult
	err    error
}

type recsMsg struct {
	result *domain.RecommendationResult
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service     Port
	userID      string
	preferences *domain.PreferenceProfile
	input       textinput.Model
	viewport    viewport.Model
	menu        *service.MenuResult
	recs        *domain.RecommendationResult
	view        view
	status      string
	busy        bool
	ready       bool
}

// New creates a new TUI model instance. preferences may be nil.
func New(svc Port, userID string, preferences *domain.PreferenceProfile) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Restaurant name @ location, or /rec [n]"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:     svc,
		userID:      userID,
		preferences: preferences,
		input:       ti,
		viewport:    vp,
		status:      "Type a restaurant to search.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, subtitle, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderBody())
		return m, nil
	case menuMsg:
		m.busy = false
		if msg.err != nil && msg.result == nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.menu, m.recs, m.view = msg.result, nil, viewMenu
		m.status = fmt.Sprintf("%d items from %s", len(msg.result.Items), msg.result.Source)
		if msg.err != nil {
			m.status += " (" + msg.err.Error() + ")"
		}
		m.viewport.SetContent(m.renderBody())
		m.viewport.GotoTop()
		return m, nil
	case recsMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.recs, m.view = msg.result, viewRecommendations
		m.status = fmt.Sprintf("%d recommendations. Tab switches views.", len(msg.result.Items))
		m.viewport.SetContent(m.renderBody())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.busy {
				return m, nil
			}
			cmd := m.submit(strings.TrimSpace(m.input.Value()))
			if cmd != nil {
				m.busy = true
				m.input.SetValue("")
			}
			return m, cmd
		case "tab":
			if m.recs != nil {
				if m.view == viewMenu {
					m.view = viewRecommendations
				} else {
					m.view = viewMenu
				}
				m.viewport.SetContent(m.renderBody())
				return m, nil
			}
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit turns an input line into a pipeline command. Status is updated in place.
func (m *Model) submit(line string) tea.Cmd {
	if line == "" {
		return nil
	}
	if n, ok := parseRecommend(line); ok {
		if m.menu == nil {
			m.status = "Search a restaurant first."
			return nil
		}
		m.status = "Scoring menu..."
		req := service.RecommendRequest{
			UserID:       m.userID,
			RestaurantID: m.menu.Restaurant.ID,
			Preferences:  m.preferences,
			MaxItems:     n,
		}
		svc := m.service
		return func() tea.Msg {
			ctx := logging.ContextWithNewRequestID(context.Background())
			res, err := svc.Recommend(ctx, req)
			return recsMsg{result: res, err: err}
		}
	}
	name, location := parseSearch(line)
	m.status = fmt.Sprintf("Searching for %q...", name)
	svc := m.service
	return func() tea.Msg {
		ctx := logging.ContextWithNewRequestID(context.Background())
		res, err := svc.SearchRestaurant(ctx, name, location)
		return menuMsg{result: res, err: err}
	}
}

// parseSearch splits "name @ location".
func parseSearch(line string) (string, string) {
	name, location, _ := strings.Cut(line, "@")
	return strings.TrimSpace(name), strings.TrimSpace(location)
}

// parseRecommend recognizes "/rec" with an optional count. A zero count
// means the configured default.
func parseRecommend(line string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "/rec" {
		return 0, false
	}
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, true
}

// View renders the TUI layout and current body.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("MenuBox")
	sub := "No restaurant selected"
	if m.menu != nil {
		r := m.menu.Restaurant
		sub = r.Name
		if r.Location != "" {
			sub += " · " + r.Location
		}
		if r.CuisineType != "" {
			sub += " · " + r.CuisineType
		}
	}
	subtitle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(sub)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	body := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + subtitle + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderBody() string {
	if m.view == viewRecommendations && m.recs != nil {
		return renderRecommendations(m.recs.Items)
	}
	if m.menu == nil {
		return "No menu yet."
	}
	return renderMenu(m.menu.Items)
}

func renderMenu(items []domain.MenuItem) string {
	if len(items) == 0 {
		return "No menu items found."
	}
	var b strings.Builder
	category := ""
	for i, it := range items {
		if it.Category != category {
			if i > 0 {
				b.WriteString("\n")
			}
			category = it.Category
			b.WriteString(categoryStyle.Render(category))
			b.WriteString("\n")
		}
		line := "  " + it.Name
		if it.Price != nil {
			line += priceStyle.Render(fmt.Sprintf("  $%.2f", *it.Price))
		}
		b.WriteString(line)
		b.WriteString("\n")
		if it.Description != "" {
			b.WriteString(descStyle.Render("    " + it.Description))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRecommendations(items []domain.RecommendedItem) string {
	if len(items) == 0 {
		return "No recommendations."
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, it.ItemName, scoreStyle.Render(strconv.Itoa(it.Score)))
		if it.Reasoning != "" {
			b.WriteString(descStyle.Render("   " + it.Reasoning))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	categoryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	priceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	descStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	scoreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
