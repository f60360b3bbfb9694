package ui

import "github.com/bamsammich/fanout/internal/event"

// quietPresenter consumes changes but produces no output.
type quietPresenter struct{}

func (p *quietPresenter) Run(changes <-chan event.Change) error {
	for range changes {
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}
