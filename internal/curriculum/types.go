package curriculum

// Curriculum is one entry of the curriculum list (e.g., IGCSE Mathematics 0580).
type Curriculum struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// TopicNode is one entry in the curriculum hierarchy (subject/paper/topic/subtopic).
// A tree snapshot is immutable once fetched; it is replaced wholesale on
// curriculum change.
type TopicNode struct {
	ID       string      `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Children []TopicNode `json:"children,omitempty" yaml:"children"`
}

// HasChildren reports whether the node can be expanded.
func (n TopicNode) HasChildren() bool {
	return len(n.Children) > 0
}

// Exam is an exam listed under a topic in the student library.
type Exam struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	TopicID     string `json:"topic_id" yaml:"topic_id"`
	Level       string `json:"level,omitempty" yaml:"level"`
	PaperNumber int    `json:"paper_number,omitempty" yaml:"paper_number"`
}

// document is the on-disk layout of one curriculum YAML file.
type document struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Topics []TopicNode `yaml:"topics"`
	Exams  []Exam      `yaml:"exams"`
}
