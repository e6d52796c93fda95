package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// MemoryStore is an in-process Store for tests and small local corpora.
// With an Embedder it ranks by cosine similarity; without one it falls back
// to query term overlap, which needs no embedding service at all.
type MemoryStore struct {
	mu sync.RWMutex

	// embedder is optional. Nil selects lexical scoring.
	embedder Embedder

	// maxResults caps the number of hits per search.
	maxResults int

	// courses is the catalog in insertion order.
	courses []Course

	// titleVecs is parallel to courses when embedder is set.
	titleVecs [][]float32

	// chunks holds every indexed chunk.
	chunks []memChunk
}

type memChunk struct {
	CourseChunk
	vec   []float32
	terms map[string]struct{}
}

// NewMemoryStore returns an empty store. maxResults <= 0 defaults to 5.
func NewMemoryStore(embedder Embedder, maxResults int) *MemoryStore {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &MemoryStore{embedder: embedder, maxResults: maxResults}
}

// AddCourse indexes a course and its chunks. Chunks inherit the course title.
// Adding a title that already exists is an error.
func (s *MemoryStore) AddCourse(ctx context.Context, course Course, chunks []CourseChunk) error {
	if course.Title == "" {
		return fmt.Errorf("vectorstore: course title must not be empty")
	}

	var titleVec []float32
	var chunkVecs [][]float32
	if s.embedder != nil {
		texts := make([]string, 0, len(chunks)+1)
		texts = append(texts, course.Title)
		for _, c := range chunks {
			texts = append(texts, c.Content)
		}
		vecs, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("vectorstore: embedding course %q failed: %w", course.Title, err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("vectorstore: embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}
		titleVec, chunkVecs = vecs[0], vecs[1:]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.courses {
		if c.Title == course.Title {
			return fmt.Errorf("vectorstore: course %q already indexed", course.Title)
		}
	}

	s.courses = append(s.courses, course)
	s.titleVecs = append(s.titleVecs, titleVec)
	for i, c := range chunks {
		c.CourseTitle = course.Title
		mc := memChunk{CourseChunk: c, terms: termSet(c.Content)}
		if chunkVecs != nil {
			mc.vec = chunkVecs[i]
		}
		s.chunks = append(s.chunks, mc)
	}
	return nil
}

// Search ranks chunks matching the filters against query.
func (s *MemoryStore) Search(ctx context.Context, query string, courseName *string, lessonNumber *int) (*SearchResults, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("vectorstore: search aborted: %w", err)
	}

	var courseTitle string
	if name := courseFilter(courseName); name != "" {
		title, err := s.resolve(ctx, name)
		if err != nil {
			return s.inBand(ctx, err)
		}
		if title == "" {
			return EmptyResults(fmt.Sprintf("No course found matching '%s'", name)), nil
		}
		courseTitle = title
	}

	var qvec []float32
	if s.embedder != nil {
		vecs, err := s.embedder.Embed(ctx, []string{query})
		if err != nil {
			return s.inBand(ctx, err)
		}
		if len(vecs) == 0 {
			return s.inBand(ctx, fmt.Errorf("embedder returned empty result"))
		}
		qvec = vecs[0]
	}
	qterms := termSet(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk *memChunk
		score float64
	}
	var hits []scored
	for i := range s.chunks {
		c := &s.chunks[i]
		if courseTitle != "" && c.CourseTitle != courseTitle {
			continue
		}
		if lessonNumber != nil && (c.LessonNumber == nil || *c.LessonNumber != *lessonNumber) {
			continue
		}
		var score float64
		if qvec != nil {
			score = cosineSimilarity(qvec, c.vec)
		} else {
			score = overlap(qterms, c.terms)
		}
		hits = append(hits, scored{chunk: c, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > s.maxResults {
		hits = hits[:s.maxResults]
	}

	res := &SearchResults{
		Documents: make([]string, 0, len(hits)),
		Metadata:  make([]ChunkMetadata, 0, len(hits)),
		Distances: make([]float32, 0, len(hits)),
	}
	for _, h := range hits {
		meta := ChunkMetadata{CourseTitle: h.chunk.CourseTitle, ChunkIndex: h.chunk.ChunkIndex}
		if h.chunk.LessonNumber != nil {
			n := *h.chunk.LessonNumber
			meta.LessonNumber = &n
		}
		res.Documents = append(res.Documents, h.chunk.Content)
		res.Metadata = append(res.Metadata, meta)
		res.Distances = append(res.Distances, float32(1-h.score))
	}
	return res, nil
}

func (s *MemoryStore) inBand(ctx context.Context, err error) (*SearchResults, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("vectorstore: search aborted: %w", ctxErr)
	}
	return EmptyResults(fmt.Sprintf("Search error: %v", err)), nil
}

// resolve maps a possibly partial course name onto a catalog title: exact
// (case-insensitive) first, then substring, then nearest title.
func (s *MemoryStore) resolve(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, c := range s.courses {
		if strings.ToLower(c.Title) == lower {
			s.mu.RUnlock()
			return c.Title, nil
		}
	}
	if lower != "" {
		for _, c := range s.courses {
			if strings.Contains(strings.ToLower(c.Title), lower) {
				s.mu.RUnlock()
				return c.Title, nil
			}
		}
	}
	empty := len(s.courses) == 0
	s.mu.RUnlock()

	if empty {
		return "", nil
	}

	if s.embedder == nil {
		return s.nearestTitle(termSet(name), nil), nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("vectorstore: embedding course name failed: %w", err)
	}
	if len(vecs) == 0 {
		return "", fmt.Errorf("vectorstore: embedder returned empty result")
	}
	return s.nearestTitle(nil, vecs[0]), nil
}

// nearestTitle returns the best-scoring title. Lexical matching requires at
// least one shared term.
func (s *MemoryStore) nearestTitle(terms map[string]struct{}, vec []float32) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best, bestScore := "", 0.0
	for i, c := range s.courses {
		var score float64
		if vec != nil {
			score = cosineSimilarity(vec, s.titleVecs[i])
			if best == "" || score > bestScore {
				best, bestScore = c.Title, score
			}
			continue
		}
		score = overlap(terms, termSet(c.Title))
		if score > bestScore {
			best, bestScore = c.Title, score
		}
	}
	return best
}

// LessonLink returns the lesson's link, or "" when unknown.
func (s *MemoryStore) LessonLink(_ context.Context, courseTitle string, lessonNumber int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.courses {
		if s.courses[i].Title != courseTitle {
			continue
		}
		if l, ok := s.courses[i].LessonByNumber(lessonNumber); ok {
			return l.Link, nil
		}
		return "", nil
	}
	return "", nil
}

// CourseOutline resolves courseName and returns a copy of its catalog entry.
func (s *MemoryStore) CourseOutline(ctx context.Context, courseName string) (*Course, error) {
	title, err := s.resolve(ctx, courseName)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.courses {
		if c.Title == title {
			out := c
			out.Lessons = append([]Lesson(nil), c.Lessons...)
			return &out, nil
		}
	}
	return nil, nil
}

// CourseTitles lists catalog titles in insertion order.
func (s *MemoryStore) CourseTitles(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]string, 0, len(s.courses))
	for _, c := range s.courses {
		titles = append(titles, c.Title)
	}
	return titles, nil
}

// CourseCount returns the number of indexed courses.
func (s *MemoryStore) CourseCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.courses), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// termSet lowercases text and splits it on anything that is not a letter
// or digit.
func termSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// overlap is the fraction of query terms present in doc.
func overlap(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var n int
	for t := range query {
		if _, ok := doc[t]; ok {
			n++
		}
	}
	return float64(n) / float64(len(query))
}
