package services_test

import (
	"context"
	"testing"

	"scrivener/internal/services"
)

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.ChapterIDFromContext(ctx); ok {
		t.Fatal("bare context should carry no chapter id")
	}

	ctx = services.WithChapterID(ctx, 42)
	ctx = services.WithScene(ctx, "The Senate Floor")
	ctx = services.WithRequestID(ctx, "run-1")

	if id, ok := services.ChapterIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("chapter id = %d, %v", id, ok)
	}
	if scene, ok := services.SceneFromContext(ctx); !ok || scene != "The Senate Floor" {
		t.Fatalf("scene = %q, %v", scene, ok)
	}
	if id, ok := services.RequestIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("request id = %q, %v", id, ok)
	}
}

func TestContextBlankValuesIgnored(t *testing.T) {
	ctx := services.WithScene(context.Background(), "")
	if _, ok := services.SceneFromContext(ctx); ok {
		t.Fatal("blank scene should not be stored")
	}
	ctx = services.WithRequestID(context.Background(), "")
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("blank request id should not be stored")
	}
}
