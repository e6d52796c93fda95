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

// OutlineToolName is the name the model uses to call CourseOutlineTool.
const OutlineToolName = "get_course_outline"

// OutlineStore is the subset of vectorstore.Store the outline tool needs.
type OutlineStore interface {
	CourseOutline(ctx context.Context, courseName string) (*vectorstore.Course, error)
}

// CourseOutlineTool returns a course's title, link, instructor and lesson list.
type CourseOutlineTool struct {
	store OutlineStore
}

var _ Tool = (*CourseOutlineTool)(nil)
var _ tool.InvokableTool = (*CourseOutlineTool)(nil)

type outlineInput struct {
	CourseName string `json:"course_name"`
}

// NewCourseOutlineTool constructs a CourseOutlineTool over the given store.
func NewCourseOutlineTool(store OutlineStore) *CourseOutlineTool {
	return &CourseOutlineTool{store: store}
}

// Name returns the tool name registered with the model.
func (t *CourseOutlineTool) Name() string { return OutlineToolName }

// Definition returns the model-facing schema.
func (t *CourseOutlineTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        OutlineToolName,
		Description: "Get a course outline: title, course link, instructor and the complete lesson list",
		Parameters: []llm.Parameter{
			{Name: "course_name", Type: "string", Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')"},
		},
		Required: []string{"course_name"},
	}
}

// Execute resolves the course and renders its outline. An unknown course is
// an in-band outcome.
func (t *CourseOutlineTool) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	var in outlineInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("%s: invalid input: %w", OutlineToolName, err)
	}

	course, err := t.store.CourseOutline(ctx, in.CourseName)
	if err != nil {
		return Result{}, fmt.Errorf("%s: outline lookup failed: %w", OutlineToolName, err)
	}
	if course == nil {
		return Result{Text: fmt.Sprintf("No course found matching '%s'", in.CourseName)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Link: %s\n", course.Link)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", course.Instructor)
	}
	fmt.Fprintf(&b, "Lessons (%d):", len(course.Lessons))
	for _, l := range course.Lessons {
		fmt.Fprintf(&b, "\nLesson %d: %s", l.Number, l.Title)
	}

	return Result{
		Text:    b.String(),
		Sources: []Source{{Title: course.Title, Link: course.Link}},
	}, nil
}

// Info returns the Eino tool metadata.
func (t *CourseOutlineTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return llm.EinoToolInfos([]llm.ToolDefinition{t.Definition()})[0], nil
}

// InvokableRun runs the tool for Eino callers.
func (t *CourseOutlineTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	res, err := t.Execute(ctx, json.RawMessage(argumentsInJSON))
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
