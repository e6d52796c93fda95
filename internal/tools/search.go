package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/coursebot-go/internal/llm"
	"github.com/54b3r/coursebot-go/internal/vectorstore"
)

// SearchToolName is the name the model uses to call CourseSearchTool.
const SearchToolName = "search_course_content"

// SearchStore is the subset of vectorstore.Store the search tool needs.
type SearchStore interface {
	Search(ctx context.Context, query string, courseName *string, lessonNumber *int) (*vectorstore.SearchResults, error)
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// CourseSearchTool searches course content and renders the hits as
// citation-friendly text blocks.
type CourseSearchTool struct {
	// store performs the similarity search and lesson link lookups.
	store SearchStore
}

var _ Tool = (*CourseSearchTool)(nil)
var _ tool.InvokableTool = (*CourseSearchTool)(nil)

// searchInput is the JSON input schema for CourseSearchTool.
type searchInput struct {
	// Query is the free-text search query. May be empty.
	Query string `json:"query"`

	// CourseName optionally restricts the search to one course. Partial
	// names are resolved by the store.
	CourseName *string `json:"course_name,omitempty"`

	// LessonNumber optionally restricts the search to one lesson.
	LessonNumber *int `json:"lesson_number,omitempty"`
}

// NewCourseSearchTool constructs a CourseSearchTool over the given store.
func NewCourseSearchTool(store SearchStore) *CourseSearchTool {
	return &CourseSearchTool{store: store}
}

// Name returns the tool name registered with the model.
func (t *CourseSearchTool) Name() string { return SearchToolName }

// Definition returns the model-facing schema.
func (t *CourseSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: []llm.Parameter{
			{Name: "query", Type: "string", Description: "What to search for in the course content"},
			{Name: "course_name", Type: "string", Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')"},
			{Name: "lesson_number", Type: "integer", Description: "Specific lesson number to search within (e.g. 1, 2, 3)"},
		},
		Required: []string{"query"},
	}
}

// Execute decodes the model input and runs Search.
func (t *CourseSearchTool) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	var in searchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("%s: invalid input: %w", SearchToolName, err)
	}
	return t.Search(ctx, in.Query, in.CourseName, in.LessonNumber)
}

// Search passes the query and filters to the store unchanged and formats
// the outcome. Nil filters are not applied.
func (t *CourseSearchTool) Search(ctx context.Context, query string, courseName *string, lessonNumber *int) (Result, error) {
	res, err := t.store.Search(ctx, query, courseName, lessonNumber)
	if err != nil {
		return Result{}, fmt.Errorf("%s: search failed: %w", SearchToolName, err)
	}

	if res.Error != "" {
		return Result{Text: res.Error}, nil
	}

	if res.IsEmpty() {
		var filters string
		if courseName != nil && *courseName != "" {
			filters += fmt.Sprintf(" in course '%s'", *courseName)
		}
		if lessonNumber != nil {
			filters += fmt.Sprintf(" in lesson %d", *lessonNumber)
		}
		return Result{Text: "No relevant content found" + filters + "."}, nil
	}

	return t.format(ctx, res)
}

// format renders one "[title]\ncontent" block per hit and one source per hit.
func (t *CourseSearchTool) format(ctx context.Context, res *vectorstore.SearchResults) (Result, error) {
	blocks := make([]string, 0, res.Len())
	sources := make([]Source, 0, res.Len())

	for i, doc := range res.Documents {
		var meta vectorstore.ChunkMetadata
		if i < len(res.Metadata) {
			meta = res.Metadata[i]
		}
		courseTitle := meta.CourseTitle
		if courseTitle == "" {
			courseTitle = "unknown"
		}

		title := courseTitle
		var link string
		if meta.LessonNumber != nil {
			title = fmt.Sprintf("%s - Lesson %d", courseTitle, *meta.LessonNumber)
			l, err := t.store.LessonLink(ctx, courseTitle, *meta.LessonNumber)
			if err != nil {
				return Result{}, fmt.Errorf("%s: lesson link lookup failed: %w", SearchToolName, err)
			}
			link = l
		}

		blocks = append(blocks, "["+title+"]\n"+doc)
		sources = append(sources, Source{Title: title, Link: link})
	}

	return Result{Text: strings.Join(blocks, "\n\n"), Sources: sources}, nil
}

// Info returns the Eino tool metadata.
func (t *CourseSearchTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return llm.EinoToolInfos([]llm.ToolDefinition{t.Definition()})[0], nil
}

// InvokableRun runs the tool for Eino callers, which only consume the text.
func (t *CourseSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	res, err := t.Execute(ctx, json.RawMessage(argumentsInJSON))
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
