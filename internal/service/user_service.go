package service

import (
	"Banter/internal/api/dto"
	"Banter/internal/model"
	"Banter/internal/pkg/consts"
	"Banter/internal/pkg/minio"
	"Banter/internal/pkg/redis"
	"Banter/internal/pkg/security"
	"Banter/internal/repository"
	"context"
	"time"

	"github.com/jinzhu/copier"
)

type UserService interface {
	Register(ctx context.Context, regDTO *dto.RegisterDTO) (*dto.LoginResultDTO, error)
	Login(ctx context.Context, credDTO *dto.CredentialDTO) (*dto.LoginResultDTO, error)
	Logout(ctx context.Context, token string) error
	GetUserInfo(ctx context.Context, id uint64) (*dto.UserDTO, error)
	ListUsers(ctx context.Context, selfID uint64) ([]*dto.UserDTO, error)
	UpdateAvatar(ctx context.Context, id uint64, objectName string) error
}

type UserServiceImpl struct {
	userRepo repository.UserRepo
}

func NewUserService(userRepo repository.UserRepo) UserService {
	return &UserServiceImpl{
		userRepo: userRepo,
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, regDTO *dto.RegisterDTO) (*dto.LoginResultDTO, error) {
	findUser, err := s.userRepo.GetUserByUsername(ctx, regDTO.Username)
	if err != nil {
		return nil, err
	}
	if findUser != nil {
		return nil, ErrUserUsernameExist
	}

	passwordHash, err := security.HashPassword(regDTO.Password)
	if err != nil {
		return nil, err
	}

	nickname := regDTO.Nickname
	if nickname == "" {
		nickname = regDTO.Username
	}
	user := &model.User{
		Username:  &regDTO.Username,
		Password:  &passwordHash,
		Nickname:  nickname,
		AvatarURL: consts.DefaultAvatarURL,
	}

	if err = s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResultDTO{Token: token, User: s.toUserDTO(user)}, nil
}

func (s *UserServiceImpl) Login(ctx context.Context, credDTO *dto.CredentialDTO) (*dto.LoginResultDTO, error) {
	if credDTO.Username == nil || credDTO.Password == nil {
		return nil, ErrParamInvalid
	}
	user, err := s.userRepo.GetUserByUsername(ctx, *credDTO.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDelete {
		return nil, ErrUserNotFound
	}
	if user.Password == nil {
		return nil, ErrPasswordIncorrect
	}
	if err = security.CheckPasswordHash(*credDTO.Password, *user.Password); err != nil {
		return nil, ErrPasswordIncorrect
	}

	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResultDTO{Token: token, User: s.toUserDTO(user)}, nil
}

// Logout 将令牌签名写入黑名单，有效期覆盖令牌剩余生命周期
func (s *UserServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return err
	}
	return redis.SetWithExpiration(ctx, signature, true, time.Hour*24*7)
}

func (s *UserServiceImpl) GetUserInfo(ctx context.Context, id uint64) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.toUserDTO(user), nil
}

// ListUsers 侧边栏联系人列表
func (s *UserServiceImpl) ListUsers(ctx context.Context, selfID uint64) ([]*dto.UserDTO, error) {
	users, err := s.userRepo.ListUsers(ctx, selfID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.UserDTO, 0, len(users))
	for _, u := range users {
		res = append(res, s.toUserDTO(u))
	}
	return res, nil
}

func (s *UserServiceImpl) UpdateAvatar(ctx context.Context, id uint64, objectName string) error {
	user := &model.User{ID: id, AvatarURL: objectName}
	return s.userRepo.UpdateUser(ctx, user)
}

func (s *UserServiceImpl) toUserDTO(user *model.User) *dto.UserDTO {
	userDTO := &dto.UserDTO{}
	_ = copier.Copy(userDTO, user)
	userDTO.UserID = &user.ID
	url := minio.GetPublicURL(user.AvatarURL)
	userDTO.AvatarURL = &url
	return userDTO
}
