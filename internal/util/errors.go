package util

import "errors"

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrCourseNotFound   = errors.New("course not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrAlreadyEnrolled  = errors.New("already enrolled in this course")
	ErrCourseNotFree    = errors.New("course requires payment")
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrAwardNotEnrolled = errors.New("not enrolled in startup award program")
	ErrEventNotFound    = errors.New("event not found")
)
