package util

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotApproved        = errors.New("account is awaiting approval")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSelfModification   = errors.New("admins cannot delete or demote themselves")
	ErrInvalidRole        = errors.New("invalid role")

	ErrCourseNotFound      = errors.New("course not found")
	ErrSubCourseNotFound   = errors.New("sub-course not found")
	ErrLevelNotFound       = errors.New("level not found")
	ErrModuleNotFound      = errors.New("module not found")
	ErrHasChildren         = errors.New("item still has children, pass force=true to delete them too")
	ErrInvalidOrder        = errors.New("ordered ids must be a permutation of the current children")
	ErrInvalidModuleType   = errors.New("invalid module type")
	ErrInvalidResourceKind = errors.New("invalid resource kind")

	ErrNotEnrolled        = errors.New("not enrolled in this course")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrCourseNotPublished = errors.New("course is not published")
	ErrModuleLocked       = errors.New("module is locked until previous modules are completed")
	ErrQuizModule         = errors.New("quiz modules are completed by passing the quiz")
	ErrWatchIncomplete    = errors.New("video has not been watched long enough")
	ErrNotVideoModule     = errors.New("module is not a video resource")

	ErrQuizNotFound   = errors.New("quiz not found")
	ErrNotQuizModule  = errors.New("module is not a quiz module")
	ErrInvalidQuiz    = errors.New("every question needs a prompt and a correct answer")
	ErrRetakeCooldown = errors.New("quiz retake is not available yet")
	ErrEmptyQuiz      = errors.New("quiz has no questions")

	ErrMessageNotFound = errors.New("message not found")
	ErrReplyNotFound   = errors.New("reply not found")
	ErrEmptyContent    = errors.New("content must not be empty")

	ErrInvalidFileType = errors.New("invalid file type")
)
