package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"go-casting-scout/internal/digest"
)

// Console prints the digest. It is the fallback when no remote channel is
// configured and the output of --dry-run.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Send(_ context.Context, d digest.Digest) error {
	_, err := fmt.Fprintf(c.w, "Subject: %s\n\n%s", d.Subject, d.Text)
	return err
}
