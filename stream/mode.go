package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/meshstream/core"
)

// Mode selects which item kinds a consumer receives.
type Mode string

const (
	// ModeDeltas forwards state deltas only.
	ModeDeltas Mode = "deltas-only"
	// ModeEvents forwards custom events only.
	ModeEvents Mode = "events-only"
	// ModeBoth forwards deltas and events.
	ModeBoth Mode = "both"
)

// ParseMode parses a mode name. "updates" and "custom" are accepted as
// aliases for deltas and events respectively; the empty string means both.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both", "all":
		return ModeBoth, nil
	case "deltas-only", "deltas", "updates":
		return ModeDeltas, nil
	case "events-only", "events", "custom":
		return ModeEvents, nil
	default:
		return "", fmt.Errorf("unknown stream mode %q", s)
	}
}

// String implements fmt.Stringer.
func (m Mode) String() string { return string(m) }

// Allows reports whether an item passes the mode. Error items always pass;
// completion items never do, they are internal bookkeeping.
func (m Mode) Allows(item core.StreamItem) bool {
	switch item.Kind {
	case core.KindError:
		return true
	case core.KindDelta:
		return m == ModeDeltas || m == ModeBoth
	case core.KindEvent:
		return m == ModeEvents || m == ModeBoth
	default:
		return false
	}
}

// Filter returns the items of in allowed by mode. The output closes when in
// closes or ctx is done.
func Filter(ctx context.Context, in <-chan core.StreamItem, mode Mode) <-chan core.StreamItem {
	out := make(chan core.StreamItem)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				go drain(in)
				return
			case it, ok := <-in:
				if !ok {
					return
				}
				if !mode.Allows(it) {
					continue
				}
				select {
				case out <- it:
				case <-ctx.Done():
					go drain(in)
					return
				}
			}
		}
	}()
	return out
}

// Forward copies items into sink until items closes. It stops at the first
// send failure.
func Forward(ctx context.Context, items <-chan core.StreamItem, sink core.Sink) error {
	for it := range items {
		if err := sink.Send(ctx, it); err != nil {
			go drain(items)
			return err
		}
	}
	return nil
}
