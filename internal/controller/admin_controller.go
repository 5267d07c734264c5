package controller

import (
	"errors"
	"fmt"
	"net/http"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/service"
	"startup_edu_backend/internal/util"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AdminController 管理后台：用户、课程内容、活动、审计与导出
type AdminController struct {
	UserService    *service.UserService
	ContentService *service.ContentService
	EventService   *service.EventService
	ExportService  *service.ExportService
	AuditService   *service.AdminLogService
}

func NewAdminController(
	userService *service.UserService,
	contentService *service.ContentService,
	eventService *service.EventService,
	exportService *service.ExportService,
	auditService *service.AdminLogService,
) *AdminController {
	return &AdminController{
		UserService:    userService,
		ContentService: contentService,
		EventService:   eventService,
		ExportService:  exportService,
		AuditService:   auditService,
	}
}

func (c *AdminController) audit(ctx *gin.Context, action, target, detail string) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		return
	}
	c.AuditService.Record(claims.UserID, action, target, detail, ctx.ClientIP())
}

// GetUsers godoc
// @Summary 用户列表
// @Description 支持按角色、状态、关键词和注册时间筛选
// @Tags 管理后台
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/users [get]
func (c *AdminController) GetUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	filter := service.UserFilter{
		Role:   ctx.Query("role"),
		Status: ctx.Query("status"),
		Search: ctx.Query("search"),
	}
	if v := ctx.Query("startDate"); v != "" {
		if t, err := time.Parse(util.DateFormat, v); err == nil {
			filter.StartDate = t
		}
	}
	if v := ctx.Query("endDate"); v != "" {
		if t, err := time.Parse(util.DateFormat, v); err == nil {
			filter.EndDate = t
		}
	}

	users, total, err := c.UserService.GetUsers(page, limit, filter)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  users,
		Total: int64(total),
		Page:  page,
		Limit: limit,
	})
}

// GetUserDetail godoc
// @Summary 用户详情
// @Tags 管理后台
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id} [get]
func (c *AdminController) GetUserDetail(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("id"))

	user, err := c.UserService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, user)
}

// SetUserDisabledRequest 启用/禁用请求
type SetUserDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// SetUserDisabled godoc
// @Summary 启用/禁用用户账号
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param body body SetUserDisabledRequest true "目标状态"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/disabled [put]
func (c *AdminController) SetUserDisabled(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("id"))

	var req SetUserDisabledRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SetDisabled(userID, req.Disabled); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "user.set_disabled", fmt.Sprintf("user:%d", userID), fmt.Sprintf("disabled=%v", req.Disabled))
	util.Success(ctx, gin.H{"disabled": req.Disabled})
}

// ResetUserPasswordRequest 密码重置请求
type ResetUserPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// ResetUserPassword godoc
// @Summary 重置用户密码
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param body body ResetUserPasswordRequest true "新密码"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/password [put]
func (c *AdminController) ResetUserPassword(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("id"))

	var req ResetUserPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.ResetPassword(userID, req.Password); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "user.reset_password", fmt.Sprintf("user:%d", userID), "")
	util.Success(ctx, gin.H{"reset": true})
}

// CourseRequest 课程创建/更新请求
type CourseRequest struct {
	Title          string `json:"title" binding:"required"`
	Slug           string `json:"slug"`
	Description    string `json:"description"`
	CoverURL       string `json:"coverUrl"`
	PriceAmount    int64  `json:"priceAmount"`
	PriceCurrency  string `json:"priceCurrency"`
	IsStartupAward bool   `json:"isStartupAward"`
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/admin/courses [post]
func (c *AdminController) CreateCourse(ctx *gin.Context) {
	var req CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course := &model.Course{
		Title:          req.Title,
		Description:    req.Description,
		CoverURL:       req.CoverURL,
		PriceAmount:    req.PriceAmount,
		PriceCurrency:  req.PriceCurrency,
		IsStartupAward: req.IsStartupAward,
	}
	if req.Slug != "" {
		course.Slug = &req.Slug
	}
	if course.PriceCurrency == "" {
		course.PriceCurrency = "EUR"
	}

	if err := c.ContentService.CreateCourse(ctx.Request.Context(), course); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "course.create", fmt.Sprintf("course:%d", course.ID), course.Title)
	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/admin/courses/{id} [put]
func (c *AdminController) UpdateCourse(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	course, err := c.ContentService.GetCourse(courseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	var req CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course.Title = req.Title
	if req.Slug != "" {
		course.Slug = &req.Slug
	} else {
		course.Slug = nil
	}
	course.Description = req.Description
	course.CoverURL = req.CoverURL
	course.PriceAmount = req.PriceAmount
	if req.PriceCurrency != "" {
		course.PriceCurrency = req.PriceCurrency
	}
	course.IsStartupAward = req.IsStartupAward

	if err := c.ContentService.UpdateCourse(ctx.Request.Context(), course); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "course.update", fmt.Sprintf("course:%d", course.ID), course.Title)
	util.Success(ctx, course)
}

// SetCoursePublishedRequest 上架/下架请求
type SetCoursePublishedRequest struct {
	Published bool `json:"published"`
}

// SetCoursePublished godoc
// @Summary 上架/下架课程
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body SetCoursePublishedRequest true "目标状态"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/admin/courses/{id}/published [put]
func (c *AdminController) SetCoursePublished(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	var req SetCoursePublishedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.ContentService.SetPublished(ctx.Request.Context(), courseID, req.Published)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	c.audit(ctx, "course.set_published", fmt.Sprintf("course:%d", courseID), fmt.Sprintf("published=%v", req.Published))
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Tags 管理后台
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id} [delete]
func (c *AdminController) DeleteCourse(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	if err := c.ContentService.DeleteCourse(ctx.Request.Context(), courseID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "course.delete", fmt.Sprintf("course:%d", courseID), "")
	util.Success(ctx, gin.H{"deleted": true})
}

// LessonRequest 课节创建/更新请求
type LessonRequest struct {
	CourseID    uint   `json:"courseId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order" binding:"required,min=1"`
	Content     string `json:"content"`
}

// CreateLesson godoc
// @Summary 创建课节
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body LessonRequest true "课节信息"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /api/admin/lessons [post]
func (c *AdminController) CreateLesson(ctx *gin.Context) {
	var req LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson := &model.Lesson{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
		Content:     req.Content,
	}
	if err := c.ContentService.CreateLesson(ctx.Request.Context(), lesson); err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	c.audit(ctx, "lesson.create", fmt.Sprintf("lesson:%d", lesson.ID), lesson.Title)
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 更新课节
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课节ID"
// @Param body body LessonRequest true "课节信息"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/admin/lessons/{id} [put]
func (c *AdminController) UpdateLesson(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))

	lesson, err := c.ContentService.LessonRepo.FindByID(lessonID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	var req LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson.Title = req.Title
	lesson.Description = req.Description
	lesson.Order = req.Order
	lesson.Content = req.Content

	if err := c.ContentService.UpdateLesson(ctx.Request.Context(), lesson); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "lesson.update", fmt.Sprintf("lesson:%d", lessonID), lesson.Title)
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除课节
// @Tags 管理后台
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课节ID"
// @Success 200 {object} util.Response
// @Router /api/admin/lessons/{id} [delete]
func (c *AdminController) DeleteLesson(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))

	if err := c.ContentService.DeleteLesson(ctx.Request.Context(), lessonID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "lesson.delete", fmt.Sprintf("lesson:%d", lessonID), "")
	util.Success(ctx, gin.H{"deleted": true})
}

// UploadLessonVideo godoc
// @Summary 上传课节视频
// @Description 上传并探测视频时长，写回课节记录
// @Tags 管理后台
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课节ID"
// @Param video formData file true "视频文件"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/admin/lessons/{id}/video [post]
func (c *AdminController) UploadLessonVideo(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))

	file, err := ctx.FormFile("video")
	if err != nil {
		util.BadRequest(ctx, "video file is required")
		return
	}

	lesson, err := c.ContentService.AttachLessonVideo(ctx.Request.Context(), lessonID, file)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	c.audit(ctx, "lesson.upload_video", fmt.Sprintf("lesson:%d", lessonID), lesson.VideoURL)
	util.Success(ctx, lesson)
}

// QuizQuestionRequest 测验题目
type QuizQuestionRequest struct {
	Text         string `json:"text" binding:"required"`
	OptionsJSON  string `json:"optionsJson" binding:"required"`
	CorrectIndex int    `json:"correctIndex" binding:"min=0"`
	Order        int    `json:"order"`
}

// QuizRequest 测验创建/整体替换请求
type QuizRequest struct {
	Title        string                `json:"title" binding:"required"`
	PassingScore int                   `json:"passingScore" binding:"min=0,max=100"`
	Questions    []QuizQuestionRequest `json:"questions" binding:"required,min=1"`
}

// SaveQuiz godoc
// @Summary 创建或替换课节测验
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课节ID"
// @Param body body QuizRequest true "测验内容"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /api/admin/lessons/{id}/quiz [put]
func (c *AdminController) SaveQuiz(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))

	var req QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz := &model.Quiz{
		Title:        req.Title,
		PassingScore: req.PassingScore,
	}
	if quiz.PassingScore == 0 {
		quiz.PassingScore = 60
	}
	for i, q := range req.Questions {
		order := q.Order
		if order == 0 {
			order = i + 1
		}
		quiz.Questions = append(quiz.Questions, model.QuizQuestion{
			Text:         q.Text,
			OptionsJSON:  q.OptionsJSON,
			CorrectIndex: q.CorrectIndex,
			Order:        order,
		})
	}

	if err := c.ContentService.SaveQuiz(lessonID, quiz); err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	c.audit(ctx, "quiz.save", fmt.Sprintf("lesson:%d", lessonID), quiz.Title)
	util.Success(ctx, quiz)
}

// EventRequest 活动创建/更新请求
type EventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"startsAt" binding:"required"`
	Published   bool      `json:"published"`
}

// CreateEvent godoc
// @Summary 创建活动
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body EventRequest true "活动信息"
// @Success 201 {object} util.Response{data=model.Event}
// @Router /api/admin/events [post]
func (c *AdminController) CreateEvent(ctx *gin.Context) {
	var req EventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	event := &model.Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		Published:   req.Published,
	}
	if err := c.EventService.CreateEvent(event); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "event.create", fmt.Sprintf("event:%d", event.ID), event.Title)
	util.Created(ctx, event)
}

// UpdateEvent godoc
// @Summary 更新活动
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Param body body EventRequest true "活动信息"
// @Success 200 {object} util.Response{data=model.Event}
// @Router /api/admin/events/{id} [put]
func (c *AdminController) UpdateEvent(ctx *gin.Context) {
	eventID := util.MustParseUint(ctx.Param("id"))

	event, err := c.EventService.GetEventByID(eventID)
	if err != nil {
		if errors.Is(err, util.ErrEventNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	var req EventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Location = req.Location
	event.StartsAt = req.StartsAt
	event.Published = req.Published

	if err := c.EventService.UpdateEvent(event); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "event.update", fmt.Sprintf("event:%d", eventID), event.Title)
	util.Success(ctx, event)
}

// DeleteEvent godoc
// @Summary 删除活动
// @Tags 管理后台
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response
// @Router /api/admin/events/{id} [delete]
func (c *AdminController) DeleteEvent(ctx *gin.Context) {
	eventID := util.MustParseUint(ctx.Param("id"))

	if err := c.EventService.DeleteEvent(eventID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "event.delete", fmt.Sprintf("event:%d", eventID), "")
	util.Success(ctx, gin.H{"deleted": true})
}

// GetAuditLogs godoc
// @Summary 操作审计日志
// @Tags 管理后台
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/audit-logs [get]
func (c *AdminController) GetAuditLogs(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	logs, total, err := c.AuditService.GetLogs(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  logs,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// ExportUsers godoc
// @Summary 导出用户列表（XLSX）
// @Tags 管理后台
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Success 200 {file} binary
// @Router /api/admin/export/users [get]
func (c *AdminController) ExportUsers(ctx *gin.Context) {
	buf, err := c.ExportService.ExportUsers()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "export.users", "users", "")

	filename := fmt.Sprintf("users_%s.xlsx", time.Now().Format("20060102"))
	ctx.Header("Content-Disposition", "attachment; filename="+filename)
	ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ExportAwardProgress godoc
// @Summary 导出课程的创业奖进度（XLSX）
// @Tags 管理后台
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {file} binary
// @Router /api/admin/export/startup-award/{courseId} [get]
func (c *AdminController) ExportAwardProgress(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("courseId"))

	buf, err := c.ExportService.ExportAwardProgress(courseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.audit(ctx, "export.award_progress", fmt.Sprintf("course:%d", courseID), "")

	filename := fmt.Sprintf("startup_award_%d_%s.xlsx", courseID, time.Now().Format("20060102"))
	ctx.Header("Content-Disposition", "attachment; filename="+filename)
	ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// GetAllEvents godoc
// @Summary 活动列表（含未发布）
// @Tags 管理后台
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/events [get]
func (c *AdminController) GetAllEvents(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	events, total, err := c.EventService.GetEvents(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  events,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
