package feedback

import (
	"fmt"
	"html"
	"strings"

	"github.com/gabrielmiguelok/kudos/pkg/forms"
	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

func renderWizard(st wizard.State, confetti []piece) string {
	var sb strings.Builder
	sb.Grow(8 << 10)

	if st.Completed() {
		renderThankYou(&sb)
		return sb.String()
	}

	fmt.Fprintf(&sb, `<div class="kudos" data-phase="%s">`, st.Phase)
	if st.Celebrating() {
		renderConfetti(&sb, confetti)
	}
	renderHeader(&sb, st)

	fmt.Fprintf(&sb, `<section class="kudos-card" data-step="%d">`, st.Step)
	layout := wizard.Layout(st.Step)
	fmt.Fprintf(&sb, `<h2 class="kudos-title">%s</h2>`, html.EscapeString(layout.Title))
	for _, in := range wizard.Visible(st.Step, st.Answers) {
		renderInput(&sb, in, st)
	}
	if st.Step == 3 && st.Answers.LeaveTestimonial == wizard.No {
		fmt.Fprintf(&sb, `<p class="kudos-note">%s</p>`, html.EscapeString(wizard.DeclineNote))
	}
	renderActions(&sb, st)
	sb.WriteString(`</section></div>`)
	return sb.String()
}

func renderHeader(sb *strings.Builder, st wizard.State) {
	fmt.Fprintf(sb, `<header class="kudos-header"><h1>❤️ %s ✨</h1><p class="kudos-tagline">%s</p>`,
		html.EscapeString(wizard.Heading), html.EscapeString(wizard.Tagline))

	progress := st.Progress()
	fmt.Fprintf(sb, `<div class="kudos-progress"><div class="kudos-progress-labels"><span>Progress</span><span>%d%% Complete</span></div>`, progress)
	fmt.Fprintf(sb, `<div class="kudos-progress-track"><div class="kudos-progress-bar" style="width:%d%%"></div></div>`, progress)

	sb.WriteString(`<ol class="kudos-steps">`)
	for n := 1; n <= wizard.TotalSteps; n++ {
		switch {
		case n < st.Step:
			fmt.Fprintf(sb, `<li class="kudos-step active done" data-step="%d">✓</li>`, n)
		case n == st.Step:
			fmt.Fprintf(sb, `<li class="kudos-step active" data-step="%d">%d</li>`, n, n)
		default:
			fmt.Fprintf(sb, `<li class="kudos-step" data-step="%d">%d</li>`, n, n)
		}
	}
	sb.WriteString(`</ol></div></header>`)
}

func renderInput(sb *strings.Builder, in wizard.Input, st wizard.State) {
	spec := in.Spec
	value := st.Answers.Get(in.Key)
	msg, invalid := st.Errors[in.Key]
	id := "kudos-" + spec.Name

	inputClass := "kudos-input"
	if invalid {
		inputClass += " kudos-invalid"
	}

	fmt.Fprintf(sb, `<div class="kudos-field" data-field="%s">`, spec.Name)

	switch spec.Type {
	case forms.FieldRadio:
		fmt.Fprintf(sb, `<fieldset class="kudos-choices"><legend>%s</legend>`, label(spec))
		for _, opt := range spec.Options {
			checked, selected := "", ""
			if opt.Value == value {
				checked, selected = " checked", " kudos-selected"
			}
			fmt.Fprintf(sb, `<label class="kudos-choice%s"><input type="radio" name="%s" value="%s" lv-change="%s"%s><span class="kudos-emoji">%s</span> %s</label>`,
				selected, spec.Name, html.EscapeString(opt.Value), EventChange, checked,
				opt.Emoji, html.EscapeString(opt.Label))
		}
		sb.WriteString(`</fieldset>`)

	case forms.FieldTextarea:
		fmt.Fprintf(sb, `<label for="%s">%s</label>`, id, label(spec))
		fmt.Fprintf(sb, `<textarea id="%s" name="%s" class="%s" rows="%d" placeholder="%s" lv-change="%s">%s</textarea>`,
			id, spec.Name, inputClass, spec.Rows, html.EscapeString(spec.Placeholder), EventChange, html.EscapeString(value))

	default:
		fmt.Fprintf(sb, `<label for="%s">%s</label>`, id, label(spec))
		fmt.Fprintf(sb, `<input id="%s" type="%s" name="%s" class="%s" value="%s" placeholder="%s" lv-change="%s">`,
			id, spec.Type, spec.Name, inputClass, html.EscapeString(value), html.EscapeString(spec.Placeholder), EventChange)
	}

	if invalid {
		fmt.Fprintf(sb, `<p class="kudos-error" role="alert">⚠️ %s</p>`, html.EscapeString(msg))
	}
	sb.WriteString(`</div>`)
}

func label(spec forms.Field) string {
	text := html.EscapeString(spec.Label)
	if spec.Required {
		text += ` <span class="kudos-required">*</span>`
	}
	return text
}

func renderActions(sb *strings.Builder, st wizard.State) {
	frozen := ""
	if st.Celebrating() {
		frozen = " disabled"
	}

	prevDisabled := frozen
	if st.Step == 1 {
		prevDisabled = " disabled"
	}
	sb.WriteString(`<div class="kudos-actions">`)
	fmt.Fprintf(sb, `<button type="button" class="kudos-btn kudos-prev" lv-click="%s"%s>%s</button>`,
		EventPrevious, prevDisabled, wizard.PreviousLabel)
	if st.Step < wizard.TotalSteps {
		fmt.Fprintf(sb, `<button type="button" class="kudos-btn kudos-next" lv-click="%s"%s>%s</button>`,
			EventNext, frozen, wizard.NextLabel)
	} else {
		fmt.Fprintf(sb, `<button type="button" class="kudos-btn kudos-submit" lv-click="%s"%s>%s</button>`,
			EventSubmit, frozen, wizard.SubmitLabel)
	}
	sb.WriteString(`</div>`)
}

func renderConfetti(sb *strings.Builder, confetti []piece) {
	sb.WriteString(`<div class="kudos-confetti" aria-hidden="true">`)
	for _, p := range confetti {
		fmt.Fprintf(sb, `<span class="kudos-confetti-piece" style="left:%.1f%%;top:%.1f%%;animation-delay:%.2fs;animation-duration:%.2fs">%s</span>`,
			p.Left, p.Top, p.Delay, p.Duration, p.Symbol)
	}
	sb.WriteString(`</div>`)
}

func renderThankYou(sb *strings.Builder) {
	fmt.Fprintf(sb, `<div class="kudos kudos-done" data-phase="%s"><section class="kudos-thanks">`, wizard.Completed)
	sb.WriteString(`<div class="kudos-thanks-icon">🎉</div>`)
	fmt.Fprintf(sb, `<h1>%s</h1><p class="kudos-thanks-lead">%s</p><p>%s</p>`,
		html.EscapeString(wizard.ThankYouTitle), html.EscapeString(wizard.ThankYouLead), html.EscapeString(wizard.ThankYouBody))
	sb.WriteString(`<div class="kudos-bounce"><span>😊</span><span style="animation-delay:.2s">💙</span><span style="animation-delay:.4s">🚀</span></div>`)
	sb.WriteString(`</section></div>`)
}
