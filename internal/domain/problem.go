package domain

// DefaultTemplate seeds the code buffer for problems without starter code.
const DefaultTemplate = "// Code here"

type Problem struct {
	ID           int64  `json:"id" mapstructure:"id"`
	Title        string `json:"title" mapstructure:"title"`
	TemplateCode string `json:"templateCode" mapstructure:"template_code"`
}

// StarterCode returns the template, falling back to DefaultTemplate.
func (p Problem) StarterCode() string {
	if p.TemplateCode == "" {
		return DefaultTemplate
	}
	return p.TemplateCode
}

// Submission is what the grading collaborator accepts.
type Submission struct {
	UserID     int64  `json:"userId"`
	ProblemID  int64  `json:"problemId"`
	SourceCode string `json:"sourceCode"`
	Language   string `json:"language"`
}

const StatusAccepted = "ACCEPTED"

// EvaluationResult is the grader verdict. The coordinator only relays it.
type EvaluationResult struct {
	Status         string `json:"status"`
	PassCount      int    `json:"passCount"`
	TotalTestCases int    `json:"totalTestCases"`
	RuntimeMs      int64  `json:"runtimeMs"`
}

func (r EvaluationResult) Accepted() bool { return r.Status == StatusAccepted }
