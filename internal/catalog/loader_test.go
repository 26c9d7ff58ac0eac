package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/learnpath/learnpath-lms/internal/progress"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "intro.yaml", `
id: intro
title: Introduction
level: beginner
lessons:
  - id: intro-1
    title: Welcome
    type: content
  - id: intro-quiz
    title: Check
    type: quiz
    passing_score: 80
`)
	writeFile(t, dir, "advanced.yml", `
id: adv
title: Advanced Topics
level: advanced
prerequisite_course_id: intro
deadline: "2025-12-31T00:00:00Z"
is_mandatory: true
lessons:
  - id: adv-1
    type: video
`)
	writeFile(t, dir, "notes.txt", "not a catalog file")
	writeFile(t, dir, "broken.yaml", "title: missing id")

	store := progress.NewInMemoryStore()
	n, err := Load(context.Background(), dir, store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported = %d, want 2", n)
	}

	ctx := context.Background()
	c, err := store.GetCourse(ctx, "adv")
	if err != nil {
		t.Fatalf("get adv: %v", err)
	}
	if c.Level != progress.LevelAdvanced || !c.IsMandatory {
		t.Errorf("adv course = %+v", c)
	}
	if c.PrerequisiteCourseID == nil || *c.PrerequisiteCourseID != "intro" {
		t.Errorf("adv prerequisite = %v", c.PrerequisiteCourseID)
	}
	if c.Deadline == nil {
		t.Error("adv deadline missing")
	}

	quiz, err := store.GetLesson(ctx, "intro-quiz")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.PassingScore != 80 || quiz.Type != progress.LessonQuiz {
		t.Errorf("quiz lesson = %+v", quiz)
	}
	if !quiz.Published {
		t.Error("lessons default to published")
	}
	if quiz.Position != 1 {
		t.Errorf("quiz position = %d, want 1", quiz.Position)
	}

	if _, err := store.GetCourse(ctx, "broken"); progress.KindOf(err) != progress.KindNotFound {
		t.Error("broken file must be skipped, not imported")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad-level.yaml", `
id: x
title: X
level: expert
`)
	writeFile(t, dir, "bad-score.yaml", `
id: y
title: Y
lessons:
  - id: y-1
    type: quiz
    passing_score: 150
`)
	store := progress.NewInMemoryStore()
	n, err := Load(context.Background(), dir, store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 0 {
		t.Fatalf("imported = %d, want 0", n)
	}
}

func TestLoadMissingDir(t *testing.T) {
	if _, err := Load(context.Background(), "/nonexistent/catalog", progress.NewInMemoryStore()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
