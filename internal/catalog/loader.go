// Package catalog seeds courses and lessons from YAML files so deployments
// can version their catalog in git instead of hand-inserting rows.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/learnpath/learnpath-lms/internal/progress"
)

type courseFile struct {
	ID                   string       `yaml:"id"`
	Title                string       `yaml:"title"`
	Level                string       `yaml:"level"`
	PrerequisiteCourseID string       `yaml:"prerequisite_course_id"`
	Deadline             string       `yaml:"deadline"` // RFC 3339, optional
	IsMandatory          bool         `yaml:"is_mandatory"`
	Lessons              []lessonFile `yaml:"lessons"`
}

type lessonFile struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	Type         string `yaml:"type"`
	PassingScore int    `yaml:"passing_score"`
	Published    *bool  `yaml:"published"`
}

// Load walks dir for *.yaml / *.yml files, one course per file, and upserts
// them through the store. Invalid files are logged and skipped; Load only
// fails on I/O or store errors. Returns the number of courses imported.
func Load(ctx context.Context, dir string, store progress.Store) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read catalog dir: %w", err)
	}
	imported := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		course, lessons, err := parseFile(path)
		if err != nil {
			slog.Warn("catalog: skipping file", "path", path, "error", err)
			continue
		}
		if err := store.PutCourse(ctx, course); err != nil {
			return imported, fmt.Errorf("import course %s: %w", course.ID, err)
		}
		for _, l := range lessons {
			if err := store.PutLesson(ctx, l); err != nil {
				return imported, fmt.Errorf("import lesson %s: %w", l.ID, err)
			}
		}
		imported++
		slog.Info("catalog: imported course", "course", course.ID, "lessons", len(lessons))
	}
	return imported, nil
}

func parseFile(path string) (progress.Course, []progress.Lesson, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return progress.Course{}, nil, err
	}
	var cf courseFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return progress.Course{}, nil, fmt.Errorf("parse yaml: %w", err)
	}
	if cf.ID == "" || cf.Title == "" {
		return progress.Course{}, nil, fmt.Errorf("course id and title are required")
	}

	course := progress.Course{
		ID:          cf.ID,
		Title:       cf.Title,
		Level:       progress.LevelBeginner,
		IsMandatory: cf.IsMandatory,
	}
	switch lv := progress.Level(cf.Level); lv {
	case "", progress.LevelBeginner:
	case progress.LevelIntermediate, progress.LevelAdvanced:
		course.Level = lv
	default:
		return progress.Course{}, nil, fmt.Errorf("unknown level %q", cf.Level)
	}
	if cf.PrerequisiteCourseID != "" {
		v := cf.PrerequisiteCourseID
		course.PrerequisiteCourseID = &v
	}
	if cf.Deadline != "" {
		t, err := time.Parse(time.RFC3339, cf.Deadline)
		if err != nil {
			return progress.Course{}, nil, fmt.Errorf("deadline: %w", err)
		}
		course.Deadline = &t
	}

	lessons := make([]progress.Lesson, 0, len(cf.Lessons))
	for i, lf := range cf.Lessons {
		if lf.ID == "" {
			return progress.Course{}, nil, fmt.Errorf("lesson %d: id is required", i)
		}
		l := progress.Lesson{
			ID:           lf.ID,
			CourseID:     cf.ID,
			Title:        lf.Title,
			Type:         progress.LessonContent,
			PassingScore: lf.PassingScore,
			Position:     i,
			Published:    true,
		}
		switch lt := progress.LessonType(lf.Type); lt {
		case "", progress.LessonContent:
		case progress.LessonQuiz, progress.LessonVideo:
			l.Type = lt
		default:
			return progress.Course{}, nil, fmt.Errorf("lesson %s: unknown type %q", lf.ID, lf.Type)
		}
		if l.Type == progress.LessonQuiz && l.PassingScore == 0 {
			l.PassingScore = progress.DefaultPassingScore
		}
		if lf.PassingScore < 0 || lf.PassingScore > 100 {
			return progress.Course{}, nil, fmt.Errorf("lesson %s: passing score out of range", lf.ID)
		}
		if lf.Published != nil {
			l.Published = *lf.Published
		}
		lessons = append(lessons, l)
	}
	return course, lessons, nil
}
