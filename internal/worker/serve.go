package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/scorebridge/pkg/domain"
)

// Serve reads newline-delimited JSON messages from r and writes one reply per
// message to w, in order. It returns nil when r is exhausted.
//
// A line that is not a valid message gets an error reply; the loop continues
// with the next line.
func Serve(ctx context.Context, r io.Reader, w io.Writer, c *Context) error {
	reader := bufio.NewReader(r)
	encoder := json.NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			reply := handleLine(ctx, c, line)
			if encErr := encoder.Encode(reply); encErr != nil {
				return fmt.Errorf("failed to write reply: %w", encErr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}
	}
}

func handleLine(ctx context.Context, c *Context, line []byte) domain.Message {
	var msg domain.Message
	if err := json.Unmarshal(line, &msg); err != nil {
		c.logger.Warn("malformed message", "err", err)
		return domain.NewErrorMessage(domain.KindSerializationFailure, fmt.Sprintf("malformed message: %v", err))
	}
	return c.Handle(ctx, msg)
}
