package domain

// DefaultCategory is the category assigned to questions that were saved
// without one. Kept identical to the legacy question bank's sentinel so
// old data and new data aggregate under the same key.
const DefaultCategory = "默认题集"

// ExamQuestion is an immutable snapshot of a reference question taken at
// grading time. The Answer field may contain several acceptable variants
// separated by ';' or its full-width equivalent '；'.
type ExamQuestion struct {
	ID       int64  `json:"id"`
	Content  string `json:"content"`
	Answer   string `json:"answer"`
	Score    int    `json:"score"`
	Image    string `json:"image,omitempty"`
	Category string `json:"category"`
}

// CategoryOrDefault returns the question's category, falling back to
// DefaultCategory when none was recorded.
func (q ExamQuestion) CategoryOrDefault() string {
	if q.Category == "" {
		return DefaultCategory
	}
	return q.Category
}
