package service

import (
	"Anju/config"
	"Anju/dao"
	"Anju/models"
	"Anju/pkg/encrypt"
	"Anju/pkg/jwt"
	"Anju/types"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type AuthService struct {
	Config  *config.Config
	UserDAO *dao.Users
}

var _ IAuthService = (*AuthService)(nil)

type IAuthService interface {
	Login(ctx context.Context, req *types.LoginReq) (*types.LoginResp, error)
	Register(ctx context.Context, opt *RegisterOpt) (*models.SalesUser, error)
}

func NewAuthService(conf *config.Config, userDAO *dao.Users) IAuthService {
	return &AuthService{Config: conf, UserDAO: userDAO}
}

// Login 登录处理
func (s *AuthService) Login(ctx context.Context, req *types.LoginReq) (*types.LoginResp, error) {

	user, err := s.UserDAO.FindByMobile(ctx, req.Mobile)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("登录账号不存在! ")
		}
		return nil, err
	}

	if user.Status != models.UserStatusActive {
		return nil, errors.New("账号已被停用! ")
	}

	if !encrypt.VerifyPassword(user.Password, req.Password) {
		return nil, errors.New("登录密码填写错误! ")
	}

	expire := time.Duration(s.Config.Jwt.Expire) * time.Second
	token, err := jwt.GenerateToken([]byte(s.Config.Jwt.Secret), user.ID, user.Role, "api", expire)
	if err != nil {
		return nil, err
	}

	return &types.LoginResp{
		Token:  token,
		UserID: user.ID,
		Role:   user.Role,
	}, nil
}

type RegisterOpt struct {
	Name     string
	Mobile   string
	Password string
	Role     string
}

// Register 创建销售账号，仅管理员调用
func (s *AuthService) Register(ctx context.Context, opt *RegisterOpt) (*models.SalesUser, error) {
	if _, err := s.UserDAO.FindByMobile(ctx, opt.Mobile); err == nil {
		return nil, errors.New("账号已存在! ")
	}

	role := opt.Role
	if role == "" {
		role = models.RoleSales
	}

	user := &models.SalesUser{
		Name:      opt.Name,
		Mobile:    opt.Mobile,
		Password:  encrypt.HashPassword(opt.Password),
		Role:      role,
		Status:    models.UserStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.UserDAO.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
