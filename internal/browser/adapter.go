package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/lance13c/replyctl/internal/engine"
	"github.com/lance13c/replyctl/internal/logging"
)

// Page is the part of Manager the adapter needs.
type Page interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
	Evaluate(ctx context.Context, script string, res interface{}) error
}

// ChatAdapter drives a chat page through chromedp. It implements
// engine.UIAdapter.
type ChatAdapter struct {
	page Page
	sel  Selectors
	// VerifyDelay is how long to wait after a submit strategy before checking
	// that the message left the input.
	VerifyDelay time.Duration
}

var _ engine.UIAdapter = (*ChatAdapter)(nil)

// NewChatAdapter wraps page with the given selectors. Empty selector fields
// use the defaults.
func NewChatAdapter(page Page, sel Selectors) *ChatAdapter {
	return &ChatAdapter{
		page:        page,
		sel:         sel.withDefaults(),
		VerifyDelay: 800 * time.Millisecond,
	}
}

// jsString encodes v as a JavaScript literal.
func jsString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// rawTurn is what the page script returns per turn element.
type rawTurn struct {
	ID        string `json:"id"`
	Index     int    `json:"index"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
	Container string `json:"container"`
}

func listTurnsScript(sel Selectors) string {
	return fmt.Sprintf(`(() => {
	const attr = %s;
	const container = %s;
	const q = '[' + attr + ']';
	const after = (node) => {
		const parts = [];
		let sib = node.nextElementSibling;
		while (sib && !sib.matches(q) && !sib.querySelector(q)) {
			parts.push(sib.outerHTML);
			sib = sib.nextElementSibling;
		}
		return parts;
	};
	return Array.from(document.querySelectorAll(q)).map((el, i) => {
		let box = '';
		const wrap = container ? el.closest(container) : null;
		if (wrap) {
			box = wrap.outerHTML;
		} else {
			let parts = [el.outerHTML].concat(after(el));
			const parent = el.parentElement;
			if (parent && parent.querySelectorAll(q).length === 1) {
				parts = parts.concat(after(parent));
			}
			box = '<div>' + parts.join('') + '</div>';
		}
		return {id: el.getAttribute(attr) || '', index: i, text: el.innerText || '', html: el.outerHTML, container: box};
	});
})()`, jsString(sel.TurnAttribute), jsString(sel.TurnContainer))
}

// buildTurns converts page data into engine turns. Numeric attribute values
// are used as ids; if any is not numeric, document order is used for all.
func buildTurns(raw []rawTurn, sel Selectors) []engine.Turn {
	ids := make([]int64, len(raw))
	numeric := true
	for i, r := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(r.ID), 10, 64)
		if err != nil {
			numeric = false
			break
		}
		ids[i] = id
	}
	if !numeric {
		for i, r := range raw {
			ids[i] = int64(r.Index + 1)
		}
	}

	turns := make([]engine.Turn, 0, len(raw))
	for i, r := range raw {
		text := strings.TrimSpace(r.Text)
		if text == "" && r.HTML != "" {
			if t, err := TextContent(r.HTML); err == nil {
				text = t
			}
		}

		st, err := AnalyzeTurn(r.HTML, r.Container, sel)
		if err != nil {
			logging.Debug("turn %s: %v", r.ID, err)
		}

		turns = append(turns, engine.Turn{
			ID:              ids[i],
			Text:            text,
			IsGenerating:    st.IsGenerating,
			HasActionMarker: st.HasActionMarker,
		})
	}
	return turns
}

// ListTurns reads every turn element on the page.
func (a *ChatAdapter) ListTurns(ctx context.Context) ([]engine.Turn, error) {
	var raw []rawTurn
	if err := a.page.Evaluate(ctx, listTurnsScript(a.sel), &raw); err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return buildTurns(raw, a.sel), nil
}

func regenerateScript(sel Selectors, click bool) string {
	return fmt.Sprintf(`(() => {
	const texts = %s;
	const selectors = %s;
	const visible = (el) => !!(el.offsetParent || el.getClientRects().length);
	let found = null;
	for (const s of selectors) {
		try {
			for (const el of document.querySelectorAll(s)) {
				if (visible(el)) found = el;
			}
		} catch (e) {}
	}
	if (!found) {
		for (const el of document.querySelectorAll('button, [role="button"], a')) {
			const label = (el.innerText || el.getAttribute('aria-label') || '').trim();
			if (label && texts.some((t) => label.includes(t)) && visible(el)) found = el;
		}
	}
	if (!found) return false;
	if (%t) found.click();
	return true;
})()`, jsString(sel.RegenerateTexts), jsString(sel.Regenerate), click)
}

// DetectRegenerateSignal reports whether a regenerate affordance is visible.
func (a *ChatAdapter) DetectRegenerateSignal(ctx context.Context) (bool, error) {
	var found bool
	if err := a.page.Evaluate(ctx, regenerateScript(a.sel, false), &found); err != nil {
		return false, fmt.Errorf("regenerate probe failed: %w", err)
	}
	return found, nil
}

// AcknowledgeRegenerate clicks the latest visible regenerate affordance.
func (a *ChatAdapter) AcknowledgeRegenerate(ctx context.Context) (bool, error) {
	var clicked bool
	if err := a.page.Evaluate(ctx, regenerateScript(a.sel, true), &clicked); err != nil {
		return false, fmt.Errorf("regenerate click failed: %w", err)
	}
	if clicked {
		logging.Info("Clicked regenerate")
	} else {
		logging.Warn("Regenerate button not found")
	}
	return clicked, nil
}

func findInputScript(sel Selectors) string {
	return fmt.Sprintf(`(() => {
	for (const s of %s) {
		try {
			const el = document.querySelector(s);
			if (el && !el.disabled) return s;
		} catch (e) {}
	}
	return '';
})()`, jsString(sel.Input))
}

func setValueScript(selector, text string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const v = %s;
	el.focus();
	if (el.isContentEditable) {
		el.innerText = v;
	} else {
		const proto = Object.getPrototypeOf(el);
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) { desc.set.call(el, v); } else { el.value = v; }
	}
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`, jsString(selector), jsString(text))
}

func inputValueScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return '';
	return (el.isContentEditable ? el.innerText : el.value) || '';
})()`, jsString(selector))
}

func clickScript(selectors []string) string {
	return fmt.Sprintf(`(() => {
	for (const s of %s) {
		try {
			for (const el of document.querySelectorAll(s)) {
				if (!el.disabled && (el.offsetParent || el.getClientRects().length)) { el.click(); return true; }
			}
		} catch (e) {}
	}
	return false;
})()`, jsString(selectors))
}

func clickByTextScript(texts []string) string {
	return fmt.Sprintf(`(() => {
	const texts = %s.map((t) => t.toLowerCase());
	for (const el of document.querySelectorAll('button, [role="button"], input[type="submit"]')) {
		const label = (el.innerText || el.value || el.getAttribute('aria-label') || '').trim().toLowerCase();
		if (label && !el.disabled && texts.some((t) => label.includes(t))) { el.click(); return true; }
	}
	return false;
})()`, jsString(texts))
}

func formSubmitScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el || !el.form) return false;
	if (el.form.requestSubmit) { el.form.requestSubmit(); } else { el.form.submit(); }
	return true;
})()`, jsString(selector))
}

func keyboardEventScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.focus();
	const init = {key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true, cancelable: true};
	for (const type of ['keydown', 'keypress', 'keyup']) el.dispatchEvent(new KeyboardEvent(type, init));
	return true;
})()`, jsString(selector))
}

type submitStrategy struct {
	name string
	run  func(ctx context.Context) (bool, error)
}

func (a *ChatAdapter) evalBool(script string) func(ctx context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		var ok bool
		err := a.page.Evaluate(ctx, script, &ok)
		return ok, err
	}
}

func (a *ChatAdapter) keys(selector string, opts ...chromedp.KeyOption) func(ctx context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		err := a.page.Run(ctx,
			chromedp.Focus(selector, chromedp.ByQuery),
			chromedp.KeyEvent(kb.Enter, opts...),
		)
		return err == nil, err
	}
}

func (a *ChatAdapter) strategies(selector string) []submitStrategy {
	return []submitStrategy{
		{"submit button", a.evalBool(clickScript(a.sel.Submit))},
		{"button text", a.evalBool(clickByTextScript(a.sel.SubmitTexts))},
		{"enter", a.keys(selector)},
		{"ctrl+enter", a.keys(selector, chromedp.KeyModifiers(input.ModifierCtrl))},
		{"form submit", a.evalBool(formSubmitScript(selector))},
		{"keyboard event", a.evalBool(keyboardEventScript(selector))},
	}
}

// fill writes text into the first matching input and returns its selector,
// or "" when there is none.
func (a *ChatAdapter) fill(ctx context.Context, text string) (string, error) {
	var selector string
	if err := a.page.Evaluate(ctx, findInputScript(a.sel), &selector); err != nil {
		return "", fmt.Errorf("failed to locate input: %w", err)
	}
	if selector == "" {
		logging.Warn("No text input found on page")
		return "", nil
	}

	if strings.Contains(text, "\n") {
		var ok bool
		if err := a.page.Evaluate(ctx, setValueScript(selector, text), &ok); err != nil {
			return "", fmt.Errorf("failed to set input value: %w", err)
		}
		if !ok {
			return "", nil
		}
		return selector, nil
	}

	var cleared bool
	if err := a.page.Evaluate(ctx, setValueScript(selector, ""), &cleared); err != nil {
		return "", fmt.Errorf("failed to clear input: %w", err)
	}
	if err := a.page.Run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("failed to type prompt: %w", err)
	}
	return selector, nil
}

// submitted reports whether the message left the input or a turn appeared.
func (a *ChatAdapter) submitted(ctx context.Context, selector string, turnsBefore int) bool {
	if a.VerifyDelay > 0 {
		t := time.NewTimer(a.VerifyDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}

	var value string
	if err := a.page.Evaluate(ctx, inputValueScript(selector), &value); err == nil && strings.TrimSpace(value) == "" {
		return true
	}
	turns, err := a.ListTurns(ctx)
	return err == nil && len(turns) > turnsBefore
}

// Submit types text into the chat input and tries each submit strategy in
// turn until the page accepts the message.
func (a *ChatAdapter) Submit(ctx context.Context, text string) (bool, error) {
	before, err := a.ListTurns(ctx)
	if err != nil {
		before = nil
	}

	selector, err := a.fill(ctx, text)
	if err != nil || selector == "" {
		return false, err
	}

	for _, s := range a.strategies(selector) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ok, err := s.run(ctx)
		if err != nil {
			logging.Debug("Submit strategy %q failed: %v", s.name, err)
			continue
		}
		if !ok {
			continue
		}
		if a.submitted(ctx, selector, len(before)) {
			logging.Debug("Submitted via %s", s.name)
			return true, nil
		}
	}

	logging.Warn("All submit strategies failed")
	return false, nil
}
