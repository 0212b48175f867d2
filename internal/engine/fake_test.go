package engine

import (
	"context"
	"sync"
)

// fakeAdapter is a scripted page. Hooks run outside the lock and may mutate
// the page through the helper methods.
type fakeAdapter struct {
	mu        sync.Mutex
	turns     []Turn
	signal    bool
	submitted []string
	lists     int
	acks      int

	onSubmit func(f *fakeAdapter, text string) bool
	onList   func(f *fakeAdapter, call int) error
	onAck    func(f *fakeAdapter)
}

func newFake(baseline ...Turn) *fakeAdapter {
	return &fakeAdapter{turns: baseline}
}

func (f *fakeAdapter) Submit(ctx context.Context, text string) (bool, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, text)
	hook := f.onSubmit
	f.mu.Unlock()

	if hook != nil {
		return hook(f, text), nil
	}
	return true, nil
}

func (f *fakeAdapter) ListTurns(ctx context.Context) ([]Turn, error) {
	f.mu.Lock()
	f.lists++
	call := f.lists
	hook := f.onList
	f.mu.Unlock()

	if hook != nil {
		if err := hook(f, call); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Turn(nil), f.turns...), nil
}

func (f *fakeAdapter) AcknowledgeRegenerate(ctx context.Context) (bool, error) {
	f.mu.Lock()
	f.acks++
	hook := f.onAck
	f.mu.Unlock()

	if hook != nil {
		hook(f)
	}
	return true, nil
}

func (f *fakeAdapter) DetectRegenerateSignal(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signal, nil
}

func (f *fakeAdapter) add(turns ...Turn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turns...)
}

func (f *fakeAdapter) setSignal(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signal = v
}

func (f *fakeAdapter) replace(id int64, t Turn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.turns {
		if f.turns[i].ID == id {
			f.turns[i] = t
			return
		}
	}
	f.turns = append(f.turns, t)
}

func (f *fakeAdapter) counts() (submits, lists, acks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted), f.lists, f.acks
}

type recordingSink struct {
	prompt, final string
	calls         int
	err           error
}

func (s *recordingSink) Persist(ctx context.Context, prompt, final string) (string, error) {
	s.calls++
	s.prompt, s.final = prompt, final
	if s.err != nil {
		return "", s.err
	}
	return "outputs/output_001.md", nil
}
