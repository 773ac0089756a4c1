package upstream

// Entity payloads exchanged with the LMS API. The upstream owns these
// shapes; the companion passes them through to the front-end.

// Course is one catalog entry.
type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	UnitCount   int    `json:"unitCount"`
	Enrolled    bool   `json:"enrolled"`
}

// CourseException is an admin-granted deviation from course rules
// (deadline extension, prerequisite waiver).
type CourseException struct {
	ID        string `json:"id"`
	CourseID  string `json:"courseId"`
	LearnerID string `json:"learnerId"`
	Reason    string `json:"reason"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// CreateExceptionRequest is the payload for granting an exception.
type CreateExceptionRequest struct {
	CourseID  string `json:"courseId" binding:"required"`
	LearnerID string `json:"learnerId" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	ExpiresAt string `json:"expiresAt"`
}

// LearningUnit is one lesson within a course.
type LearningUnit struct {
	ID         string `json:"id"`
	CourseID   string `json:"courseId"`
	Title      string `json:"title"`
	Sequence   int    `json:"sequence"`
	ContentURL string `json:"contentUrl"`
	Completed  bool   `json:"completed"`
}

// AdaptiveQuestion is the next question chosen by the server-side adaptive
// engine.
type AdaptiveQuestion struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"prompt"`
	Choices    []string `json:"choices"`
	Difficulty float64  `json:"difficulty"`
}

// NextQuestionRequest reports the last answer so the engine can pick the
// next question.
type NextQuestionRequest struct {
	SessionID      string `json:"sessionId" binding:"required"`
	LastQuestionID string `json:"lastQuestionId,omitempty"`
	Correct        *bool  `json:"correct,omitempty"`
}

// Credential is an issued certificate.
type Credential struct {
	ID             string `json:"id"`
	LearnerID      string `json:"learnerId"`
	CourseID       string `json:"courseId"`
	Title          string `json:"title"`
	IssuedAt       string `json:"issuedAt"`
	CertificateURL string `json:"certificateUrl"`
}

// IssueCredentialRequest is the admin payload for issuing a credential.
type IssueCredentialRequest struct {
	LearnerID string `json:"learnerId" binding:"required"`
	CourseID  string `json:"courseId" binding:"required"`
	Title     string `json:"title" binding:"required"`
}

// MatchingExercise is a pair-matching activity.
type MatchingExercise struct {
	ID     string   `json:"id"`
	Prompt string   `json:"prompt"`
	Left   []string `json:"left"`
	Right  []string `json:"right"`
}

// MatchingAttempt is a learner's submitted pairing.
type MatchingAttempt struct {
	ExerciseID string            `json:"exerciseId" binding:"required"`
	Pairs      map[string]string `json:"pairs" binding:"required"`
}

// MatchingResult is the graded outcome of an attempt.
type MatchingResult struct {
	Correct int  `json:"correct"`
	Total   int  `json:"total"`
	Passed  bool `json:"passed"`
}
