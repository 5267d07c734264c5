package database

import (
	"errors"
	"fmt"
	"log"
	"startup_edu_backend/internal/config"
	"startup_edu_backend/internal/model"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
		cfg.Database.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// release模式下默认跳过自动迁移，--migrate / --migrate-only 强制执行
	if cfg.Server.Mode == "release" && !cfg.ForceMigrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.AuthIdentity{},
		&model.Course{},
		&model.Lesson{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.LessonProgress{},
		&model.QuizAttempt{},
		&model.Enrollment{},
		&model.StartupAwardProgress{},
		&model.Order{},
		&model.Event{},
		&model.AdminLog{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	if err := seedAdmin(db, &cfg.Admin); err != nil {
		return nil, err
	}

	return db, nil
}

// seedAdmin 迁移后种子管理员账号，未配置或已存在则跳过
func seedAdmin(db *gorm.DB, cfg *config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	var existing model.User
	err := db.Where("email = ?", cfg.Email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}

	now := time.Now()
	admin := model.User{
		Name:      name,
		Email:     cfg.Email,
		Password:  string(hashed),
		Role:      model.Admin,
		LastLogin: now,
		LastSeen:  now,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Seeded admin account %s", cfg.Email)
	return nil
}
