// Package notify delivers a digest to one or more channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go-casting-scout/internal/digest"

	"go.uber.org/zap"
)

// ErrNoChannel is returned by Multi when it has nothing to deliver through.
var ErrNoChannel = errors.New("no delivery channel configured")

type Notifier interface {
	Name() string
	Send(ctx context.Context, d digest.Digest) error
}

// Multi fans a digest out to every channel. Delivery succeeds when at least
// one channel accepts it; failures of the others are logged.
type Multi struct {
	notifiers []Notifier
	log       *zap.SugaredLogger
}

func NewMulti(log *zap.SugaredLogger, notifiers ...Notifier) *Multi {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Multi{notifiers: notifiers, log: log}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return strings.Join(names, "+")
}

// Len is the number of channels.
func (m *Multi) Len() int { return len(m.notifiers) }

func (m *Multi) Send(ctx context.Context, d digest.Digest) error {
	if len(m.notifiers) == 0 {
		return ErrNoChannel
	}

	var errs []error
	delivered := 0
	for _, n := range m.notifiers {
		if err := n.Send(ctx, d); err != nil {
			m.log.Errorw("Delivery failed", "channel", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		m.log.Infow("Digest delivered", "channel", n.Name(), "listings", d.Count)
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("all channels failed: %w", errors.Join(errs...))
	}
	return nil
}

// chunk packs blocks (joined by sep) into messages of at most limit bytes.
// A block that alone exceeds limit is split on rune boundaries.
func chunk(blocks []string, sep string, limit int) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, b := range blocks {
		if b == "" {
			continue
		}
		for len(b) > limit {
			flush()
			cut := limit
			for cut > 0 && !utf8.RuneStart(b[cut]) {
				cut--
			}
			out = append(out, b[:cut])
			b = b[cut:]
		}
		if cur.Len() > 0 && cur.Len()+len(sep)+len(b) > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(b)
	}
	flush()
	return out
}
