package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

// Run shows the wizard until the user quits. If the wizard completed, Run
// waits for the submission to finish before returning its result.
func Run(ctx context.Context, opts Options, programOpts ...tea.ProgramOption) (wizard.State, error) {
	programOpts = append([]tea.ProgramOption{tea.WithContext(ctx)}, programOpts...)
	p := tea.NewProgram(New(opts), programOpts...)

	final, err := p.Run()
	m, ok := final.(Model)
	if !ok {
		return wizard.State{}, err
	}
	if err != nil || !m.submitted {
		return m.state, err
	}

	select {
	case err := <-m.results:
		return m.state, err
	case <-ctx.Done():
		return m.state, ctx.Err()
	}
}
