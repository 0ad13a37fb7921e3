package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/blob"
)

// Settings returns a user's settings document. Users who never saved any
// get an empty object.
func (e *Engine) Settings(ctx context.Context, userID string) (map[string]any, error) {
	settings := map[string]any{}
	err := e.Blobs.GetJSON(ctx, blob.SettingsKey(userID), &settings)
	if errors.Is(err, blob.ErrNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings replaces a user's settings document.
func (e *Engine) UpdateSettings(ctx context.Context, userID string, settings map[string]any) (map[string]any, error) {
	if settings == nil {
		return nil, apperr.BadInput("settings must be a JSON object")
	}
	if _, err := json.Marshal(settings); err != nil {
		return nil, apperr.BadInput("settings are not serializable: %v", err)
	}
	if err := e.Blobs.PutJSON(ctx, blob.SettingsKey(userID), settings); err != nil {
		return nil, fmt.Errorf("write settings: %w", err)
	}
	return settings, nil
}

// SettingsURL returns a signed URL for the settings document, creating an
// empty one first so the URL never points at a missing object.
func (e *Engine) SettingsURL(ctx context.Context, userID string) (string, error) {
	key := blob.SettingsKey(userID)
	var existing map[string]any
	err := e.Blobs.GetJSON(ctx, key, &existing)
	if errors.Is(err, blob.ErrNotFound) {
		if err := e.Blobs.PutJSON(ctx, key, map[string]any{}); err != nil {
			return "", fmt.Errorf("write settings: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("read settings: %w", err)
	}
	return e.Blobs.SignedURL(ctx, key, e.opts.URLExpiry)
}
