package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/videoforge/mediagen-be/internal/api/storage"
)

// DecodeGenerationCursor parses an opaque pagination cursor. An empty cursor
// decodes to nil (first page).
func DecodeGenerationCursor(cursorStr string) (*storage.GenerationCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	_, err = fmt.Sscanf(decodedParts[0], "%d", &createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.GenerationCursor{
		CreatedAt:    time.Unix(0, createdAt),
		GenerationID: decodedParts[1],
	}, nil
}

// EncodeGenerationCursor renders a cursor pointing past the given row
func EncodeGenerationCursor(cursor *storage.GenerationCursor) (string, error) {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.GenerationID)
	return base64.StdEncoding.EncodeToString([]byte(cs)), nil
}
