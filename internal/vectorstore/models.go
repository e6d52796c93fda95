package vectorstore

// Lesson is one numbered lesson of a course.
type Lesson struct {
	// Number is the lesson number as published in the course.
	Number int `json:"lesson_number"`
	// Title is the lesson title.
	Title string `json:"title"`
	// Link is the lesson URL. Empty when unknown.
	Link string `json:"lesson_link,omitempty"`
}

// Course is a catalog entry. Title doubles as the unique identifier.
type Course struct {
	// Title is the full course title.
	Title string `json:"title"`
	// Link is the course landing page URL.
	Link string `json:"course_link,omitempty"`
	// Instructor is the course author.
	Instructor string `json:"instructor,omitempty"`
	// Lessons is the ordered lesson list.
	Lessons []Lesson `json:"lessons"`
}

// LessonByNumber returns the lesson with the given number, if any.
func (c *Course) LessonByNumber(n int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == n {
			return l, true
		}
	}
	return Lesson{}, false
}

// CourseChunk is a searchable slice of course text.
type CourseChunk struct {
	// Content is the chunk text.
	Content string `json:"content"`
	// CourseTitle is the owning course's title.
	CourseTitle string `json:"course_title"`
	// LessonNumber is the lesson the chunk belongs to, nil for course-level text.
	LessonNumber *int `json:"lesson_number,omitempty"`
	// ChunkIndex is the chunk's position within the course.
	ChunkIndex int `json:"chunk_index"`
}
