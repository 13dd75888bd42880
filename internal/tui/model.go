// Package tui is the terminal front-end of the testimonial wizard. It drives
// the same state machine as the web view; the completion delay is a
// tea.Tick instead of a scheduled callback.
package tui

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gabrielmiguelok/kudos/pkg/forms"
	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/submit"
	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

// Options configure the terminal wizard.
type Options struct {
	Delay         time.Duration
	ConfettiCount int
	Submitter     submit.Submitter
	SubmitTimeout time.Duration
	Logger        logging.Logger
	Rand          *rand.Rand
}

type revealMsg struct{}

type submittedMsg struct {
	err error
}

// Model is the bubbletea model of one wizard run.
type Model struct {
	opts Options
	keys keyMap
	help help.Model
	bar  progress.Model

	state wizard.State
	focus int

	texts map[wizard.Field]textinput.Model
	areas map[wizard.Field]textarea.Model

	confetti  string
	submitted bool
	results   chan error
	width     int
}

// New creates a model on a fresh wizard.
func New(opts Options) Model {
	if opts.Delay <= 0 {
		opts.Delay = wizard.DefaultCompletionDelay
	}
	if opts.ConfettiCount == 0 {
		opts.ConfettiCount = 50
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	m := Model{
		opts:    opts,
		keys:    defaultKeys(),
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		state:   wizard.New(),
		texts:   make(map[wizard.Field]textinput.Model),
		areas:   make(map[wizard.Field]textarea.Model),
		results: make(chan error, 1),
	}

	for step := 1; step <= wizard.TotalSteps; step++ {
		for _, in := range wizard.Layout(step).Inputs {
			switch in.Spec.Type {
			case forms.FieldText, forms.FieldEmail:
				ti := textinput.New()
				ti.Placeholder = in.Spec.Placeholder
				ti.CharLimit = 0
				ti.Width = 50
				ti.Prompt = "› "
				m.texts[in.Key] = ti
			case forms.FieldTextarea:
				ta := textarea.New()
				ta.Placeholder = in.Spec.Placeholder
				ta.ShowLineNumbers = false
				ta.CharLimit = 0
				ta.SetWidth(60)
				ta.SetHeight(min(in.Spec.Rows, 4))
				m.areas[in.Key] = ta
			}
		}
	}
	m.applyFocus()
	return m
}

// State returns the wizard snapshot.
func (m Model) State() wizard.State {
	return m.state
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(msg.Width-4, 60))
		return m, nil

	case revealMsg:
		m.state = m.state.Reveal()
		if m.state.Completed() && !m.submitted {
			m.submitted = true
			m.confetti = ""
			m.opts.Logger.Info("wizard completed", logging.Bool("declined", m.state.Declined()))
			return m, m.submitCmd()
		}
		return m, nil

	case submittedMsg:
		if msg.err != nil {
			m.opts.Logger.Error("submission failed", logging.Err(msg.err))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.state.Completed() {
		if msg.String() == "q" || msg.Type == tea.KeyEnter {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.state.Celebrating() {
		return m, nil
	}

	focused, hasFocus := m.focused()
	_, inArea := m.areas[focused]

	switch {
	case key.Matches(msg, m.keys.NextField):
		return m.moveFocus(1)
	case key.Matches(msg, m.keys.PrevField):
		return m.moveFocus(-1)
	case key.Matches(msg, m.keys.Back):
		return m.transition(wizard.State.Previous)
	case key.Matches(msg, m.keys.Advance) && !(inArea && msg.Type == tea.KeyEnter):
		if m.state.Step == wizard.TotalSteps {
			return m.transition(wizard.State.Submit)
		}
		return m.transition(wizard.State.Next)
	case hasFocus && m.isRadio(focused) && key.Matches(msg, m.keys.Up):
		m.choose(focused, -1)
		return m, nil
	case hasFocus && m.isRadio(focused) && key.Matches(msg, m.keys.Down):
		m.choose(focused, 1)
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	f, ok := m.focused()
	if !ok {
		return m, nil
	}

	var cmd tea.Cmd
	var value string
	if ti, ok := m.texts[f]; ok {
		ti, cmd = ti.Update(msg)
		m.texts[f] = ti
		value = ti.Value()
	} else if ta, ok := m.areas[f]; ok {
		ta, cmd = ta.Update(msg)
		m.areas[f] = ta
		value = ta.Value()
	} else {
		return m, nil
	}

	if value != m.state.Answers.Get(f) {
		m.state = m.state.Edit(f, value)
	}
	return m, cmd
}

func (m Model) transition(fn func(wizard.State) wizard.State) (tea.Model, tea.Cmd) {
	before := m.state
	m.state = fn(before)

	if m.state.Step != before.Step {
		m.focus = 0
	}
	cmd := m.applyFocus()

	if m.state.Celebrating() && !before.Celebrating() {
		m.confetti = scatter(m.opts.Rand, m.opts.ConfettiCount)
		return m, tea.Batch(cmd, tea.Tick(m.opts.Delay, func(time.Time) tea.Msg {
			return revealMsg{}
		}))
	}
	return m, cmd
}

func (m Model) moveFocus(delta int) (tea.Model, tea.Cmd) {
	n := len(m.visible())
	if n == 0 {
		return m, nil
	}
	m.focus = ((m.focus+delta)%n + n) % n
	return m, m.applyFocus()
}

func (m Model) visible() []wizard.Input {
	if m.state.Finishing() {
		return nil
	}
	return wizard.Visible(m.state.Step, m.state.Answers)
}

func (m Model) focused() (wizard.Field, bool) {
	vis := m.visible()
	if len(vis) == 0 {
		return 0, false
	}
	return vis[min(m.focus, len(vis)-1)].Key, true
}

func (m Model) isRadio(f wizard.Field) bool {
	in, ok := wizard.InputFor(f)
	return ok && in.Spec.Type == forms.FieldRadio
}

// applyFocus focuses the input under the cursor and blurs the rest. The
// maps are shared between model copies, so this mutates in place.
func (m *Model) applyFocus() tea.Cmd {
	target, _ := m.focused()
	var cmd tea.Cmd
	for f, ti := range m.texts {
		if f == target {
			cmd = ti.Focus()
		} else {
			ti.Blur()
		}
		m.texts[f] = ti
	}
	for f, ta := range m.areas {
		if f == target {
			cmd = ta.Focus()
		} else {
			ta.Blur()
		}
		m.areas[f] = ta
	}
	return cmd
}

// choose moves the selection of radio field f by delta, wrapping. With
// nothing selected, down picks the first option and up the last.
func (m *Model) choose(f wizard.Field, delta int) {
	in, _ := wizard.InputFor(f)
	opts := in.Spec.Options
	cur := -1
	for i, o := range opts {
		if o.Value == m.state.Answers.Get(f) {
			cur = i
		}
	}
	next := 0
	switch {
	case cur < 0 && delta < 0:
		next = len(opts) - 1
	case cur >= 0:
		next = ((cur+delta)%len(opts) + len(opts)) % len(opts)
	}
	m.state = m.state.Edit(f, opts[next].Value)
}

func (m Model) submitCmd() tea.Cmd {
	if m.opts.Submitter == nil {
		m.results <- nil
		return nil
	}
	sub := submit.New(m.state)
	submitter, timeout, results := m.opts.Submitter, m.opts.SubmitTimeout, m.results
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := submitter.Submit(ctx, sub)
		results <- err
		return submittedMsg{err: err}
	}
}

func scatter(rng *rand.Rand, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(wizard.ConfettiSymbols[rng.Intn(len(wizard.ConfettiSymbols))])
		sb.WriteString(strings.Repeat(" ", rng.Intn(3)+1))
	}
	return sb.String()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.state.Completed() {
		return m.viewThanks()
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render("❤️  "+wizard.Heading+" ✨") + "\n")
	b.WriteString(taglineStyle.Render(wizard.Tagline) + "\n\n")

	progressPct := m.state.Progress()
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Progress  %d%% Complete", progressPct)) + "\n")
	b.WriteString(m.bar.ViewAs(float64(progressPct)/100) + "\n")
	badges := make([]string, 0, wizard.TotalSteps)
	for n := 1; n <= wizard.TotalSteps; n++ {
		switch {
		case n < m.state.Step:
			badges = append(badges, stepDone.Render("✓"))
		case n == m.state.Step:
			badges = append(badges, stepDone.Render(fmt.Sprint(n)))
		default:
			badges = append(badges, stepTodo.Render(fmt.Sprint(n)))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, badges...) + "\n")

	if m.state.Celebrating() {
		b.WriteString("\n" + m.wrap(confettiStyle.Render(m.confetti)) + "\n")
	}

	b.WriteString(titleStyle.Render(wizard.Layout(m.state.Step).Title) + "\n")

	focused, _ := m.focused()
	for _, in := range wizard.Visible(m.state.Step, m.state.Answers) {
		b.WriteString(m.viewInput(in, in.Key == focused && !m.state.Celebrating()))
		b.WriteString("\n")
	}
	if m.state.Step == 3 && m.state.Answers.LeaveTestimonial == wizard.No {
		b.WriteString(m.wrap(noteStyle.Render(wizard.DeclineNote)) + "\n\n")
	}

	prev := buttonStyle.Render(wizard.PreviousLabel)
	if m.state.Step == 1 {
		prev = buttonStyle.Faint(true).Render(wizard.PreviousLabel)
	}
	nextLabel := wizard.NextLabel
	if m.state.Step == wizard.TotalSteps {
		nextLabel = wizard.SubmitLabel
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, prev, "  ", primaryButton.Render(nextLabel)) + "\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) viewInput(in wizard.Input, focused bool) string {
	var b strings.Builder

	lbl := labelStyle
	if focused {
		lbl = focusedStyle
	}
	b.WriteString(lbl.Render(in.Spec.Label))
	if in.Spec.Required {
		b.WriteString(requiredStyle.Render(" *"))
	}
	b.WriteString("\n")

	switch {
	case in.Spec.Type == forms.FieldRadio:
		value := m.state.Answers.Get(in.Key)
		for _, o := range in.Spec.Options {
			mark := "( )"
			if o.Value == value {
				mark = "(•)"
			}
			line := fmt.Sprintf("  %s %s %s", mark, o.Emoji, o.Label)
			if focused && o.Value == value {
				line = focusedStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	default:
		if ti, ok := m.texts[in.Key]; ok {
			b.WriteString(ti.View() + "\n")
		} else if ta, ok := m.areas[in.Key]; ok {
			b.WriteString(ta.View() + "\n")
		}
	}

	if msg, ok := m.state.Errors[in.Key]; ok {
		b.WriteString(errorStyle.Render("⚠️  "+msg) + "\n")
	}
	return b.String()
}

func (m Model) viewThanks() string {
	body := strings.Join([]string{
		"🎉",
		"",
		headingStyle.Render(wizard.ThankYouTitle),
		taglineStyle.Render(wizard.ThankYouLead),
		"",
		m.wrap(wizard.ThankYouBody),
		"",
		"😊 💙 🚀",
	}, "\n")
	return thanksStyle.Render(body) + "\n" + mutedStyle.Render("press q to quit") + "\n"
}

func (m Model) wrap(s string) string {
	w := m.width - 4
	if w <= 0 {
		w = 76
	}
	return lipgloss.NewStyle().Width(w).Render(s)
}
