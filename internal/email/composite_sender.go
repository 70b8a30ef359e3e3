package email

import (
	"context"
	"errors"
	"fmt"
)

// CompositeEmailSender fans a message out to every sender, e.g. the provider
// chain plus a file log.
type CompositeEmailSender struct {
	senders []Sender
}

// NewCompositeEmailSender returns the concrete type so AddSender can be called.
func NewCompositeEmailSender(senders ...Sender) *CompositeEmailSender {
	return &CompositeEmailSender{senders: senders}
}

// AddSender appends a non-nil sender.
func (cs *CompositeEmailSender) AddSender(sender Sender) {
	if sender != nil {
		cs.senders = append(cs.senders, sender)
	}
}

// Send calls every sender and joins their errors.
func (cs *CompositeEmailSender) Send(ctx context.Context, msg *Message) error {
	if len(cs.senders) == 0 {
		return errors.New("no senders configured in CompositeEmailSender")
	}
	var errs []error
	for _, sender := range cs.senders {
		if err := sender.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("composite email send failed: %w", errors.Join(errs...))
	}
	return nil
}
