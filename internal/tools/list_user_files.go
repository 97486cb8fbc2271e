package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

func (e *Executor) listUserFiles(ctx context.Context) (string, error) {
	if e.Catalog == nil {
		return "", fmt.Errorf("file catalog unavailable")
	}
	files, err := e.Catalog.ListFiles(ctx, e.UserID)
	if err != nil {
		return "", fmt.Errorf("listing files: %w", err)
	}
	if files == nil {
		files = []FileSummary{}
	}
	b, err := json.Marshal(files)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
