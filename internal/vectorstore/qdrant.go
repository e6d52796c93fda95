package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Payload keys shared with the ingestion job that populates the collections.
const (
	payloadContent      = "content"
	payloadCourseTitle  = "course_title"
	payloadLessonNumber = "lesson_number"
	payloadChunkIndex   = "chunk_index"

	payloadTitle       = "title"
	payloadInstructor  = "instructor"
	payloadCourseLink  = "course_link"
	payloadLessonsJSON = "lessons_json"
)

// catalogScrollLimit bounds catalog listing. Catalogs are small (one point
// per course), so a single page is enough.
const catalogScrollLimit = 10000

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// ContentCollection holds one point per course chunk
	// (default: course_content).
	ContentCollection string

	// CatalogCollection holds one point per course, embedded by title
	// (default: course_catalog).
	CatalogCollection string

	// MaxResults is the number of chunks returned per search (default: 5).
	MaxResults int

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements Store backed by a Qdrant instance. Query text and
// course names are embedded with the configured Embedder before searching.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// embedder converts query text and course names into vectors.
	embedder Embedder

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore connects to Qdrant and verifies that both collections exist.
// The collections are created and filled by the ingestion job; a missing
// collection is a configuration error.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig, embedder Embedder) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("qdrant: embedder must not be nil")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.ContentCollection == "" {
		cfg.ContentCollection = "course_content"
	}
	if cfg.CatalogCollection == "" {
		cfg.CatalogCollection = "course_catalog"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, embedder: embedder, cfg: cfg}
	for _, name := range []string{cfg.ContentCollection, cfg.CatalogCollection} {
		if err := store.checkCollection(ctx, name); err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	return store, nil
}

// checkCollection returns an error if the named collection does not exist.
func (s *QdrantStore) checkCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("qdrant: collection %q does not exist", name)
	}
	return nil
}

// Search resolves the optional course name, embeds the query and returns the
// closest chunks that satisfy the filters. Backend failures are returned
// in-band as "Search error: ..."; a cancelled context is returned as an error.
func (s *QdrantStore) Search(ctx context.Context, query string, courseName *string, lessonNumber *int) (*SearchResults, error) {
	var courseTitle string
	if name := courseFilter(courseName); name != "" {
		title, err := s.resolveCourseName(ctx, name)
		if err != nil {
			return s.inBand(ctx, err)
		}
		if title == "" {
			return EmptyResults(fmt.Sprintf("No course found matching '%s'", name)), nil
		}
		courseTitle = title
	}

	vec, err := s.embedOne(ctx, query)
	if err != nil {
		return s.inBand(ctx, err)
	}

	limit := uint64(s.cfg.MaxResults)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.ContentCollection,
		Query:          qdrant.NewQuery(vec...),
		Filter:         buildFilter(courseTitle, lessonNumber),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return s.inBand(ctx, err)
	}

	res := &SearchResults{
		Documents: make([]string, 0, len(points)),
		Metadata:  make([]ChunkMetadata, 0, len(points)),
		Distances: make([]float32, 0, len(points)),
	}
	for _, p := range points {
		content, meta := chunkFromPayload(p.GetPayload())
		res.Documents = append(res.Documents, content)
		res.Metadata = append(res.Metadata, meta)
		res.Distances = append(res.Distances, 1-p.GetScore())
	}
	return res, nil
}

// inBand converts a backend failure into an error-only result, unless the
// context itself has ended.
func (s *QdrantStore) inBand(ctx context.Context, err error) (*SearchResults, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("qdrant: search aborted: %w", ctxErr)
	}
	return EmptyResults(fmt.Sprintf("Search error: %v", err)), nil
}

// resolveCourseName returns the catalog title nearest to name, or "" when
// the catalog is empty.
func (s *QdrantStore) resolveCourseName(ctx context.Context, name string) (string, error) {
	vec, err := s.embedOne(ctx, name)
	if err != nil {
		return "", err
	}

	limit := uint64(1)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.CatalogCollection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", fmt.Errorf("qdrant: course name lookup failed: %w", err)
	}
	if len(points) == 0 {
		return "", nil
	}
	return points[0].GetPayload()[payloadTitle].GetStringValue(), nil
}

// embedOne embeds a single text.
func (s *QdrantStore) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("qdrant: embedding failed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("qdrant: embedder returned empty result")
	}
	return vecs[0], nil
}

// LessonLink looks the course up by exact title and returns the link of the
// given lesson, or "" when either is unknown.
func (s *QdrantStore) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	course, err := s.courseByTitle(ctx, courseTitle)
	if err != nil {
		return "", err
	}
	if course == nil {
		return "", nil
	}
	lesson, ok := course.LessonByNumber(lessonNumber)
	if !ok {
		return "", nil
	}
	return lesson.Link, nil
}

// CourseOutline resolves courseName through the catalog embedding and
// returns the full catalog entry, or nil when nothing matches.
func (s *QdrantStore) CourseOutline(ctx context.Context, courseName string) (*Course, error) {
	title, err := s.resolveCourseName(ctx, courseName)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, nil
	}
	return s.courseByTitle(ctx, title)
}

// courseByTitle fetches one catalog entry by exact title.
func (s *QdrantStore) courseByTitle(ctx context.Context, title string) (*Course, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.cfg.CatalogCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadTitle, title)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: catalog lookup failed: %w", err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	return courseFromPayload(points[0].GetPayload())
}

// CourseTitles lists every course title in the catalog.
func (s *QdrantStore) CourseTitles(ctx context.Context) ([]string, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.cfg.CatalogCollection,
		Limit:          qdrant.PtrOf(uint32(catalogScrollLimit)),
		WithPayload:    qdrant.NewWithPayloadInclude(payloadTitle),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: catalog scroll failed: %w", err)
	}

	titles := make([]string, 0, len(points))
	for _, p := range points {
		titles = append(titles, p.GetPayload()[payloadTitle].GetStringValue())
	}
	return titles, nil
}

// CourseCount returns the exact number of catalog entries.
func (s *QdrantStore) CourseCount(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.CatalogCollection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: catalog count failed: %w", err)
	}
	return int(n), nil
}

// HealthCheck performs a lightweight gRPC health check against Qdrant.
func (s *QdrantStore) HealthCheck(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// buildFilter turns the resolved course title and optional lesson number into
// a Qdrant filter. It returns nil when neither is set.
func buildFilter(courseTitle string, lessonNumber *int) *qdrant.Filter {
	var must []*qdrant.Condition
	if courseTitle != "" {
		must = append(must, qdrant.NewMatch(payloadCourseTitle, courseTitle))
	}
	if lessonNumber != nil {
		must = append(must, qdrant.NewMatchInt(payloadLessonNumber, int64(*lessonNumber)))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// chunkFromPayload extracts chunk text and metadata from a content point.
func chunkFromPayload(p map[string]*qdrant.Value) (string, ChunkMetadata) {
	meta := ChunkMetadata{
		CourseTitle: p[payloadCourseTitle].GetStringValue(),
		ChunkIndex:  int(p[payloadChunkIndex].GetIntegerValue()),
	}
	if v, ok := p[payloadLessonNumber]; ok {
		if _, isInt := v.GetKind().(*qdrant.Value_IntegerValue); isInt {
			n := int(v.GetIntegerValue())
			meta.LessonNumber = &n
		}
	}
	return p[payloadContent].GetStringValue(), meta
}

// courseFromPayload decodes a catalog point. Lessons are stored as a JSON
// string because Qdrant payload filters do not index nested objects.
func courseFromPayload(p map[string]*qdrant.Value) (*Course, error) {
	c := &Course{
		Title:      p[payloadTitle].GetStringValue(),
		Link:       p[payloadCourseLink].GetStringValue(),
		Instructor: p[payloadInstructor].GetStringValue(),
	}
	if raw := p[payloadLessonsJSON].GetStringValue(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.Lessons); err != nil {
			return nil, fmt.Errorf("qdrant: invalid lessons payload for %q: %w", c.Title, err)
		}
	}
	return c, nil
}
