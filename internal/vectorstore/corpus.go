package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// corpusFile is the on-disk shape of a local course corpus.
type corpusFile struct {
	Courses []corpusCourse `json:"courses" yaml:"courses"`
}

type corpusCourse struct {
	Title      string         `json:"title" yaml:"title"`
	Link       string         `json:"course_link" yaml:"course_link"`
	Instructor string         `json:"instructor" yaml:"instructor"`
	Lessons    []corpusLesson `json:"lessons" yaml:"lessons"`
	Chunks     []corpusChunk  `json:"chunks" yaml:"chunks"`
}

type corpusLesson struct {
	Number int    `json:"lesson_number" yaml:"lesson_number"`
	Title  string `json:"title" yaml:"title"`
	Link   string `json:"lesson_link" yaml:"lesson_link"`
}

type corpusChunk struct {
	Content      string `json:"content" yaml:"content"`
	LessonNumber *int   `json:"lesson_number" yaml:"lesson_number"`
}

// LoadCorpus reads a pre-chunked course corpus from a JSON or YAML file
// (chosen by extension) into a new MemoryStore. Chunk indexes are assigned
// in file order per course.
func LoadCorpus(ctx context.Context, path string, embedder Embedder, maxResults int) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: failed to read corpus %s: %w", path, err)
	}

	var file corpusFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("vectorstore: failed to parse corpus %s: %w", path, err)
	}

	store := NewMemoryStore(embedder, maxResults)
	for _, cc := range file.Courses {
		course := Course{Title: cc.Title, Link: cc.Link, Instructor: cc.Instructor}
		for _, l := range cc.Lessons {
			course.Lessons = append(course.Lessons, Lesson{Number: l.Number, Title: l.Title, Link: l.Link})
		}
		chunks := make([]CourseChunk, 0, len(cc.Chunks))
		for i, ch := range cc.Chunks {
			chunks = append(chunks, CourseChunk{
				Content:      ch.Content,
				LessonNumber: ch.LessonNumber,
				ChunkIndex:   i,
			})
		}
		if err := store.AddCourse(ctx, course, chunks); err != nil {
			return nil, err
		}
	}
	return store, nil
}
