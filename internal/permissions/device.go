package permissions

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrPromptUnanswered is returned by DevicePlatform.Prompt when the client sent no answer.
	ErrPromptUnanswered = errors.New("permissions: prompt has no answer")
	// ErrDeniedTerminal is returned when a report tries to move a denied device to another state.
	ErrDeniedTerminal = errors.New("permissions: denied permission cannot change")
)

// DevicePlatform mirrors a client device. The client reports its capability and state,
// and forwards the outcome of its native dialog before the gate prompts.
type DevicePlatform struct {
	mu        sync.Mutex
	supported bool
	state     State
	answer    State
}

// NewDevicePlatform returns a platform with no reported capability.
func NewDevicePlatform() *DevicePlatform {
	return &DevicePlatform{}
}

// Report records what the device last observed. Once the device is denied, only a report
// repeating that state is accepted.
func (p *DevicePlatform) Report(supported bool, state State) error {
	if _, err := ParseState(string(state)); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateDenied {
		if !supported || state != StateDenied {
			return ErrDeniedTerminal
		}
		return nil
	}
	p.supported = supported
	p.state = state
	if !supported {
		p.state = StateUnknown
	}
	return nil
}

// Answer stages the outcome of the native dialog for the next Prompt.
func (p *DevicePlatform) Answer(state State) error {
	if !state.Answerable() {
		return fmt.Errorf("permissions: %q is not a prompt outcome", state)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.answer = state
	return nil
}

func (p *DevicePlatform) Supported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supported
}

func (p *DevicePlatform) Current() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Prompt consumes the staged answer. A denied device stays denied.
func (p *DevicePlatform) Prompt(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return StateUnknown, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateDenied {
		p.answer = StateUnknown
		return StateDenied, nil
	}
	if p.answer == StateUnknown {
		return StateUnknown, ErrPromptUnanswered
	}
	p.state = p.answer
	p.answer = StateUnknown
	return p.state, nil
}
