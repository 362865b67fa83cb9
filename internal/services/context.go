package services

import "context"

type contextKey string

const (
	chapterIDKey contextKey = "chapter_id"
	sceneKey     contextKey = "scene"
	requestIDKey contextKey = "request_id"
)

// WithChapterID annotates context with the chapter identifier.
func WithChapterID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, chapterIDKey, id)
}

// ChapterIDFromContext extracts the chapter identifier if present.
func ChapterIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(chapterIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithScene annotates context with the scene title being synthesized.
func WithScene(ctx context.Context, scene string) context.Context {
	if scene == "" {
		return ctx
	}
	return context.WithValue(ctx, sceneKey, scene)
}

// SceneFromContext returns the scene title if present.
func SceneFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sceneKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
