package services

import (
	"errors"

	"gorm.io/gorm"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/infrastructure/config"
	"house-rent-service/pkg/logger"
)

// InterfaceUserService 账号服务接口
type InterfaceUserService interface {
	Register(req RegisterRequest) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	EnsureAdminExists() error
}

// RegisterRequest 注册参数
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=20"`
}

// UserService 提供账号相关的服务
type UserService struct {
	DB        *gorm.DB
	Config    *config.Config
	Validator InterfaceValidatorService
}

// NewUserService 创建一个新的账号服务
func NewUserService(db *gorm.DB, cfg *config.Config, validator InterfaceValidatorService) InterfaceUserService {
	return &UserService{
		DB:        db,
		Config:    cfg,
		Validator: validator,
	}
}

// 1 Register 注册房东账号
func (s *UserService) Register(req RegisterRequest) (*models.User, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}

	var count int64
	if err := s.DB.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserAlreadyExist
	}

	user := &models.User{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     models.RoleLandlord,
		Status:   "active",
	}
	if err := s.DB.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserAlreadyExist
		}
		return nil, err
	}
	return user, nil
}

// 2 GetUserByID 根据ID获取账号
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return &user, nil
}

// 3 EnsureAdminExists 不存在管理员时创建默认管理员
func (s *UserService) EnsureAdminExists() error {
	var admin models.User
	err := s.DB.Where("role = ?", models.RoleAdmin).First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	password := "admin123"
	if s.Config != nil && s.Config.DefaultAdminPassword != "" {
		password = s.Config.DefaultAdminPassword
	}
	admin = models.User{
		Username: "admin",
		Password: password,
		Role:     models.RoleAdmin,
		Status:   "active",
	}
	if err := s.DB.Create(&admin).Error; err != nil {
		return err
	}
	logger.Info("已创建默认管理员账号: admin")
	return nil
}
