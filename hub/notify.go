package hub

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// StdoutNotifier implements poll.Notifier for notify_mode = "stdout" (§6.5):
// owner/admin notifications are printed as structured, colorized events
// rather than sent as email.
type StdoutNotifier struct {
	out io.Writer

	label *color.Color
}

// NewStdoutNotifier builds a notifier writing to os.Stdout.
func NewStdoutNotifier() *StdoutNotifier {
	return &StdoutNotifier{out: os.Stdout, label: color.New(color.FgYellow, color.Bold)}
}

// Notify implements poll.Notifier.
func (n *StdoutNotifier) Notify(ctx context.Context, message string) error {
	_, err := fmt.Fprintf(n.out, "%s %s\n", n.label.Sprint("[hub notice]"), message)
	return err
}

// EmailNotifier implements poll.Notifier for notify_mode = "email": the
// notification is sent as a plain email to the configured owner address.
type EmailNotifier struct {
	Sender    func(ctx context.Context, to, subject, body string) error
	OwnerAddr string
}

// Notify implements poll.Notifier.
func (n *EmailNotifier) Notify(ctx context.Context, message string) error {
	return n.Sender(ctx, n.OwnerAddr, "Hub notice", message)
}
