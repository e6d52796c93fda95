// Package vectorstore defines the course-content search contract and its
// backends. A Store answers similarity queries over course chunks, resolves
// fuzzy course names against the course catalog, and exposes catalog
// accessors (lesson links, outlines, titles, counts).
//
// Two backends are provided: QdrantStore for production and MemoryStore for
// tests and small local corpora. Neither builds the index; content is
// expected to be loaded by an external ingestion job.
package vectorstore

import (
	"context"
)

// Store is the interface consumed by the search and outline tools and by
// course analytics. Implementations must be safe to call from multiple
// goroutines.
type Store interface {
	// Search returns up to the configured number of chunks most similar to
	// query. A nil courseName or lessonNumber means no filter on that field.
	// Backend failures are reported in-band through SearchResults.Error;
	// a non-nil error means the call itself was aborted.
	Search(ctx context.Context, query string, courseName *string, lessonNumber *int) (*SearchResults, error)

	// LessonLink returns the link of the given lesson, or "" when the course
	// or lesson is unknown or has no link.
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)

	// CourseOutline resolves courseName to a catalog entry. It returns nil
	// when no course matches.
	CourseOutline(ctx context.Context, courseName string) (*Course, error)

	// CourseTitles lists the titles of every course in the catalog.
	CourseTitles(ctx context.Context) ([]string, error)

	// CourseCount returns the number of courses in the catalog.
	CourseCount(ctx context.Context) (int, error)
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// courseFilter returns the course name to resolve, or "" when the search is
// not restricted to a course. An empty name counts as no filter.
func courseFilter(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}
