package upload

import (
	"bytes"
	"context"
	"fmt"
)

// assemble reads parts 1..totalParts in strict ascending order and
// concatenates them into one byte stream. Any failed read aborts the attempt.
func assemble(ctx context.Context, store PartStore, sessionID string, totalParts int) ([]byte, error) {
	var buf bytes.Buffer
	for partNumber := 1; partNumber <= totalParts; partNumber++ {
		data, err := store.Get(ctx, sessionID, partNumber)
		if err != nil {
			return nil, fmt.Errorf("assemble session %s: %w", sessionID, err)
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
