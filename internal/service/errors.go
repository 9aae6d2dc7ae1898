package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced to transports. Every service error wraps exactly one of them.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
)

// Error is a human readable failure of a given kind.
type Error struct {
	kind    error
	message string
}

func newError(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

func (e *Error) Error() string {
	return e.message
}

// Unwrap exposes the kind so errors.Is(err, ErrBadRequest) holds.
func (e *Error) Unwrap() error {
	return e.kind
}

var (
	ErrLessonNotFound         = newError(ErrNotFound, "lesson not found")
	ErrAssignmentNotFound     = newError(ErrNotFound, "assignment not found")
	ErrQuestionNotFound       = newError(ErrNotFound, "question not found")
	ErrStepNotFound           = newError(ErrNotFound, "task step not found")
	ErrSubmissionNotFound     = newError(ErrNotFound, "submission not found")
	ErrStepSubmissionNotFound = newError(ErrNotFound, "step submission not found")
	ErrNotificationNotFound   = newError(ErrNotFound, "notification not found")

	ErrNotClassroomTeacher   = newError(ErrForbidden, "teacher is not assigned to this classroom")
	ErrStudentProfileMissing = newError(ErrForbidden, "student profile not found")
	ErrNotSubmissionOwner    = newError(ErrForbidden, "submission belongs to another student")

	ErrAlreadySubmitted       = newError(ErrBadRequest, "assignment already submitted")
	ErrSubmissionNotDraft     = newError(ErrBadRequest, "submission is no longer a draft")
	ErrSubmissionGraded       = newError(ErrBadRequest, "submission has already been graded")
	ErrSubmissionNotSubmitted = newError(ErrBadRequest, "draft submissions cannot be graded")
	ErrAssignmentKindMismatch = newError(ErrBadRequest, "operation does not match the assignment kind")
	ErrQuestionNotInQuiz      = newError(ErrBadRequest, "question does not belong to this assignment")
	ErrStepNotInTask          = newError(ErrBadRequest, "step does not belong to this assignment")
	ErrUnknownOption          = newError(ErrBadRequest, "selected option does not exist")
	ErrCorrectOptionCount     = newError(ErrBadRequest, "exactly one option must be marked correct")
	ErrDuplicateOptionKey     = newError(ErrBadRequest, "option keys must be unique")
	ErrEvidenceRequired       = newError(ErrBadRequest, "photo or video evidence is required")
	ErrInvalidKind            = newError(ErrBadRequest, "unsupported assignment kind")
)

// MissingStepsError lists the mandatory steps without evidence.
type MissingStepsError struct {
	StepNumbers []int
}

func (e *MissingStepsError) Error() string {
	parts := make([]string, 0, len(e.StepNumbers))
	for _, number := range e.StepNumbers {
		parts = append(parts, fmt.Sprintf("%d", number))
	}
	return "mandatory steps missing evidence: " + strings.Join(parts, ", ")
}

// Unwrap classifies the error as a bad request.
func (e *MissingStepsError) Unwrap() error {
	return ErrBadRequest
}
