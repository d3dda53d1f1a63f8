// Package tui renders the dashboard store as an interactive terminal view.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/centavo-app/centavo/internal/dashboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	kpiCardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2).MarginRight(1)
	kpiLabelStyle = lipgloss.NewStyle().Faint(true)
	incomeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	expenseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
)

// Model is the bubbletea model for the dashboard view. All data access goes
// through the dashboard store; the model only renders snapshots.
type Model struct {
	ctx     context.Context
	store   *dashboard.Store
	spinner spinner.Model
	width   int
}

// NewModel creates a dashboard TUI model.
func NewModel(ctx context.Context, store *dashboard.Store) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:     ctx,
		store:   store,
		spinner: sp,
		width:   80,
	}
}

// Messages emitted by the asynchronous load phases.
type chartsLoadedMsg struct{}
type loadFailedMsg struct{ err error }

// Init kicks off the progressive load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

// loadCmd runs the store's progressive refresh off the render loop and
// reports when charts are in.
func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.store.RefreshProgressive(m.ctx); err != nil {
			return loadFailedMsg{err: err}
		}
		return chartsLoadedMsg{}
	}
}

func (m Model) refreshCmd(move func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := move(m.ctx); err != nil {
			return loadFailedMsg{err: err}
		}
		return chartsLoadedMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			return m, m.refreshCmd(m.store.GoToPreviousMonth)
		case "right", "l":
			return m, m.refreshCmd(m.store.GoToNextMonth)
		case "r":
			return m, m.loadCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case chartsLoadedMsg, loadFailedMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the current dashboard snapshot.
func (m Model) View() string {
	state := m.store.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("centavo — "+state.Month.String()) + "\n\n")

	if state.Err != nil {
		b.WriteString(errorStyle.Render("error: "+state.Err.Error()) + "\n")
		b.WriteString(helpStyle.Render("press r to retry") + "\n")
		return b.String()
	}

	switch {
	case state.Phase == dashboard.PhaseSkeleton:
		b.WriteString(m.spinner.View() + " loading…\n")
	case state.KPI == nil:
		b.WriteString(m.spinner.View() + " computing month…\n")
	default:
		b.WriteString(m.renderKPIs(state) + "\n\n")
		if state.ChartsLoaded {
			b.WriteString(m.renderCategories(state) + "\n")
		} else {
			b.WriteString(m.spinner.View() + " loading charts…\n")
		}
	}

	if state.UsedFallback {
		b.WriteString(helpStyle.Render("(computed directly from ledger)") + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("←/→ change month · r refresh · q quit"))
	return b.String()
}

func (m Model) renderKPIs(state dashboard.State) string {
	kpi := state.KPI
	cards := []string{
		kpiCardStyle.Render(kpiLabelStyle.Render("Income") + "\n" + incomeStyle.Render(formatAmount(kpi.TotalIncome))),
		kpiCardStyle.Render(kpiLabelStyle.Render("Expense") + "\n" + expenseStyle.Render(formatAmount(kpi.TotalExpense))),
		kpiCardStyle.Render(kpiLabelStyle.Render("Savings") + "\n" + formatAmount(kpi.SavingsAmount)),
		kpiCardStyle.Render(kpiLabelStyle.Render("Entries") + "\n" + fmt.Sprintf("%d", kpi.TransactionCount)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// renderCategories draws a proportional bar per category, largest first.
func (m Model) renderCategories(state dashboard.State) string {
	if len(state.Categories) == 0 {
		return helpStyle.Render("no expenses this month")
	}

	maxBar := m.width - 40
	if maxBar < 10 {
		maxBar = 10
	}

	var b strings.Builder
	for _, cat := range state.Categories {
		share := cat.PercentageOfMonth.InexactFloat64() / 100
		width := int(share * float64(maxBar))
		if width < 1 {
			width = 1
		}
		b.WriteString(fmt.Sprintf("%-14s %s %s (%s%%)\n",
			cat.CategoryName,
			barStyle.Render(strings.Repeat("█", width)),
			formatAmount(cat.TotalAmount),
			cat.PercentageOfMonth.StringFixed(1)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, store *dashboard.Store) error {
	_, err := tea.NewProgram(NewModel(ctx, store), tea.WithContext(ctx)).Run()
	return err
}
