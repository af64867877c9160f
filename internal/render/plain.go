// ABOUTME: Plain render sink that prints each frame to a writer
// ABOUTME: Used when the terminal should scroll instead of redraw

package render

import (
	"context"
	"fmt"
	"io"
)

// Plain writes each received frame to w until frames is closed or ctx ends.
func Plain(ctx context.Context, frames <-chan Frame, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(w, "%s\n%s\n\n", Caption(f), Draw(f)); err != nil {
				return fmt.Errorf("writing frame: %w", err)
			}
		}
	}
}
