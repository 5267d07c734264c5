package controller

import (
	"errors"
	"startup_edu_backend/internal/service"
	"startup_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StartupAwardController struct {
	AwardService *service.StartupAwardService
}

func NewStartupAwardController(awardService *service.StartupAwardService) *StartupAwardController {
	return &StartupAwardController{AwardService: awardService}
}

// EnrollPhase godoc
// @Summary 登记创业奖阶段报名
// @Description 报名时间首次调用生效，重复报名不覆盖
// @Tags 创业奖
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param phase query int false "阶段（1-3），缺省为1"
// @Success 200 {object} util.Response{data=model.StartupAwardProgress}
// @Router /api/startup-award/{courseId}/enroll [post]
func (c *StartupAwardController) EnrollPhase(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID := util.MustParseUint(ctx.Param("courseId"))

	phase := int(util.MustParseUint(ctx.DefaultQuery("phase", "1")))
	rec, err := c.AwardService.TrackPhaseEnrollment(claims.Email, courseID, phase)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, rec)
}

// CheckCompletion godoc
// @Summary 触发第一阶段完成检查
// @Description 聚合课程内全部课节的完成状态，幂等
// @Tags 创业奖
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/startup-award/{courseId}/check [post]
func (c *StartupAwardController) CheckCompletion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID := util.MustParseUint(ctx.Param("courseId"))

	completed, err := c.AwardService.CheckAndUpdatePhase1Completion(claims.Email, courseID, claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"phase1Completed": completed})
}

// GetStatus godoc
// @Summary 创业奖进度查询
// @Tags 创业奖
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.AwardStatusView}
// @Failure 404 {object} util.Response "未报名创业奖计划"
// @Router /api/startup-award/{courseId}/status [get]
func (c *StartupAwardController) GetStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID := util.MustParseUint(ctx.Param("courseId"))

	status, err := c.AwardService.GetStartupAwardStatus(claims.Email, courseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if status == nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, status)
}

// ResetRequest 管理端重置请求
type ResetRequest struct {
	Email    string `json:"email" binding:"required,email"`
	CourseID uint   `json:"courseId" binding:"required"`
}

// ResetPhase1 godoc
// @Summary 重置用户的第一阶段进度（QA用）
// @Description 清空课程内全部课节进度，奖项记录回到已报名未完成
// @Tags 创业奖
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body ResetRequest true "目标用户与课程"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "用户或报名记录不存在"
// @Router /api/admin/startup-award/reset [post]
func (c *StartupAwardController) ResetPhase1(ctx *gin.Context) {
	var req ResetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	identity, err := c.AwardService.ResolveUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	if err := c.AwardService.ResetPhase1(req.Email, req.CourseID, identity.UserID); err != nil {
		if errors.Is(err, util.ErrAwardNotEnrolled) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"reset": true})
}
