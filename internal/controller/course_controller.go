package controller

import (
	"errors"
	"startup_edu_backend/internal/service"
	"startup_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// GetCourses godoc
// @Summary 公开课程目录
// @Description 返回所有已发布课程，无需登录
// @Tags 课程
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses [get]
func (c *CourseController) GetCourses(ctx *gin.Context) {
	courses, err := c.CourseService.GetPublishedCourses(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// GetCourseDetail godoc
// @Summary 课程详情
// @Description 课程及课节列表；登录用户附带解锁与完成状态
// @Tags 课程
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseDetail}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourseDetail(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	var userID uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		userID = claims.UserID
	}

	detail, err := c.CourseService.GetCourseDetail(courseID, userID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, detail)
}

// Enroll godoc
// @Summary 免费课程选课
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 402 {object} util.Response "付费课程需走订单流程"
// @Failure 409 {object} util.Response "已选过该课程"
// @Router /api/courses/{id}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID := util.MustParseUint(ctx.Param("id"))

	enrollment, err := c.CourseService.Enroll(claims.UserID, courseID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrCourseNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrCourseNotFree):
			util.Error(ctx, 402, "course requires payment")
		case errors.Is(err, util.ErrAlreadyEnrolled):
			util.Conflict(ctx, "already enrolled in this course")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, enrollment)
}

// GetMyEnrollments godoc
// @Summary 我的课程
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/my/courses [get]
func (c *CourseController) GetMyEnrollments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollments, err := c.CourseService.GetMyEnrollments(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, enrollments)
}
