package vectorstore

// ChunkMetadata describes where a search hit came from.
type ChunkMetadata struct {
	// CourseTitle is the course the chunk belongs to.
	CourseTitle string
	// LessonNumber is the lesson the chunk belongs to, nil when absent.
	LessonNumber *int
	// ChunkIndex is the chunk's position within the course.
	ChunkIndex int
}

// SearchResults holds the parallel outputs of one similarity query.
// Documents, Metadata and Distances are index-aligned. When Error is set all
// three are empty. Values are not modified after construction.
type SearchResults struct {
	// Documents are the matching chunk texts, closest first.
	Documents []string
	// Metadata holds one record per document.
	Metadata []ChunkMetadata
	// Distances holds one score per document; lower is closer.
	Distances []float32
	// Error is an in-band failure message for the model to read.
	Error string
}

// EmptyResults returns an error-only SearchResults.
func EmptyResults(msg string) *SearchResults {
	return &SearchResults{
		Documents: []string{},
		Metadata:  []ChunkMetadata{},
		Distances: []float32{},
		Error:     msg,
	}
}

// IsEmpty reports whether the query returned no documents.
func (r *SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}

// Len returns the number of hits.
func (r *SearchResults) Len() int {
	return len(r.Documents)
}
