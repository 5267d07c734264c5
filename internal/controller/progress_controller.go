package controller

import (
	"errors"
	"startup_edu_backend/internal/service"
	"startup_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	AwardService    *service.StartupAwardService
}

func NewProgressController(
	progressService *service.ProgressService,
	awardService *service.StartupAwardService,
) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		AwardService:    awardService,
	}
}

// MarkVideoWatched godoc
// @Summary 记录视频观看完毕
// @Description 幂等：同一课节重复上报只保留一条进度记录，不改变完成状态
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param lessonId path int true "课节ID"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Failure 404 {object} util.Response "课节不存在"
// @Router /api/lessons/{lessonId}/video-watched [post]
func (c *ProgressController) MarkVideoWatched(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	lessonID := util.MustParseUint(ctx.Param("lessonId"))

	progress, err := c.ProgressService.MarkVideoWatched(claims.UserID, lessonID)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, progress)
}

// MarkLessonCompleted godoc
// @Summary 标记课节完成
// @Description 完成时间只在首次落盘；创业奖课程顺带触发阶段完成检查
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param lessonId path int true "课节ID"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Failure 404 {object} util.Response "课节不存在"
// @Router /api/lessons/{lessonId}/complete [post]
func (c *ProgressController) MarkLessonCompleted(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	lessonID := util.MustParseUint(ctx.Param("lessonId"))

	progress, err := c.ProgressService.MarkLessonCompleted(claims.UserID, lessonID)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	go c.AwardService.HandleLessonCompletion(claims.Email, claims.UserID, lessonID)
	util.Success(ctx, progress)
}

// GetLessonQuiz godoc
// @Summary 获取课节测验
// @Description 题目与选项随响应下发，正确答案只在服务端保留
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param lessonId path int true "课节ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/lessons/{lessonId}/quiz [get]
func (c *ProgressController) GetLessonQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	lessonID := util.MustParseUint(ctx.Param("lessonId"))

	quiz, attempts, err := c.ProgressService.GetQuizForLesson(claims.UserID, lessonID)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{
		"quiz":     quiz,
		"attempts": attempts,
	})
}

// SubmitQuizRequest 测验作答：题目ID到所选选项下标
type SubmitQuizRequest struct {
	Answers map[uint]int `json:"answers" binding:"required"`
}

// SubmitQuiz godoc
// @Summary 提交课节测验
// @Description 服务端判分；通过则标记课节完成，已完成的课节不因失败作答回退
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonId path int true "课节ID"
// @Param body body SubmitQuizRequest true "作答"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/lessons/{lessonId}/quiz/submit [post]
func (c *ProgressController) SubmitQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	lessonID := util.MustParseUint(ctx.Param("lessonId"))

	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	grade, progress, err := c.ProgressService.SubmitQuiz(claims.UserID, lessonID, req.Answers)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) || errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	if grade.Passed {
		go c.AwardService.HandleLessonCompletion(claims.Email, claims.UserID, lessonID)
	}

	util.Success(ctx, gin.H{
		"grade":    grade,
		"progress": progress,
	})
}

// GetLessonStatus godoc
// @Summary 课节状态
// @Description locked / unlocked / completed
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param lessonId path int true "课节ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/lessons/{lessonId}/status [get]
func (c *ProgressController) GetLessonStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	lessonID := util.MustParseUint(ctx.Param("lessonId"))

	status, err := c.ProgressService.GetLessonStatus(claims.UserID, lessonID)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"status": status})
}

// GetCourseProgress godoc
// @Summary 课程进度快照
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Router /api/courses/{id}/progress [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID := util.MustParseUint(ctx.Param("id"))

	progress, err := c.ProgressService.GetCourseProgress(claims.UserID, courseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}
