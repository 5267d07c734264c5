package service

import (
	"bytes"
	"fmt"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/util"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportService 管理后台的XLSX导出
type ExportService struct {
	UserRepo  *repository.UserRepository
	AwardRepo *repository.StartupAwardRepository
}

func NewExportService(userRepo *repository.UserRepository, awardRepo *repository.StartupAwardRepository) *ExportService {
	return &ExportService{
		UserRepo:  userRepo,
		AwardRepo: awardRepo,
	}
}

// ExportUsers 导出全量用户列表
func (s *ExportService) ExportUsers() (*bytes.Buffer, error) {
	var users []model.User
	if err := s.UserRepo.DB.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Users"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Name", "Email", "Role", "Disabled", "Registered At", "Last Login"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, u := range users {
		values := []interface{}{
			u.ID,
			u.Name,
			u.Email,
			string(u.Role),
			u.Disabled,
			u.CreatedAt.Format(util.TimeFormat),
			u.LastLogin.Format(util.TimeFormat),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// ExportAwardProgress 导出某门课程的创业奖进度表，供运营侧评审
func (s *ExportService) ExportAwardProgress(courseID uint) (*bytes.Buffer, error) {
	recs, err := s.AwardRepo.FindByCourse(courseID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "AwardProgress"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Email", "Course ID", "Current Phase", "Status",
		"Phase 1 Enrolled", "Phase 1 Completed",
		"Phase 2 Enrolled", "Phase 2 Completed",
		"Phase 3 Enrolled", "Phase 3 Completed",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	formatTime := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(util.TimeFormat)
	}

	for row, rec := range recs {
		values := []interface{}{
			rec.UserEmail,
			fmt.Sprintf("%d", rec.CourseID),
			rec.CurrentPhase,
			string(rec.Status),
			formatTime(rec.Phase1EnrolledAt),
			formatTime(rec.Phase1CompletedAt),
			formatTime(rec.Phase2EnrolledAt),
			formatTime(rec.Phase2CompletedAt),
			formatTime(rec.Phase3EnrolledAt),
			formatTime(rec.Phase3CompletedAt),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf, nil
}
