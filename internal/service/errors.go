package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid          = errors.New("参数错误")
	ErrUserNotFound          = errors.New("用户不存在")
	ErrUserExist             = errors.New("用户已存在")
	ErrUserUsernameExist     = errors.New("用户名已存在")
	ErrPasswordIncorrect     = errors.New("密码错误")
	ErrFileNotSupported      = errors.New("不支持的文件类型")
	ErrGroupNotFound         = errors.New("群组不存在")
	ErrGroupMemberExist      = errors.New("成员已在群组中")
	ErrGroupMemberNotFound   = errors.New("成员不在群组中")
	ErrGroupOwnerOnly        = errors.New("仅群主可执行此操作")
	ErrGroupOwnerLeave       = errors.New("群主不能退出自己的群组")
	ErrTargetUserInvalid     = errors.New("目标用户无效")
	ErrConversationNotFound  = errors.New("会话不存在")
	ErrMessageTargetConflict = errors.New("消息目标不明确")
	UnauthorizedError        = errors.New("权限不足")
	UnExpectedError          = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:          BadRequest,
	ErrUserNotFound:          NotFound,
	ErrUserExist:             BadRequest,
	ErrUserUsernameExist:     BadRequest,
	ErrPasswordIncorrect:     Unauthorized,
	ErrFileNotSupported:      BadRequest,
	ErrGroupNotFound:         NotFound,
	ErrGroupMemberExist:      BadRequest,
	ErrGroupMemberNotFound:   NotFound,
	ErrGroupOwnerOnly:        Unauthorized,
	ErrGroupOwnerLeave:       BadRequest,
	ErrTargetUserInvalid:     BadRequest,
	ErrConversationNotFound:  NotFound,
	ErrMessageTargetConflict: BadRequest,
	UnauthorizedError:        Unauthorized,
	UnExpectedError:          InternalServerError,
}
