package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	TooManyRequests     = 429
	InternalServerError = 500
)

var (
	ErrParamInvalid            = errors.New("参数错误")
	ErrUserNotFound            = errors.New("用户不存在")
	ErrPostNotFound            = errors.New("帖子不存在")
	ErrSysBoxNotFound          = errors.New("系统通知不存在")
	ErrReactionDisabled        = errors.New("反应功能未开启")
	ErrReactionPolicyDenied    = errors.New("无权执行该操作")
	ErrReactionAlreadyActioned = errors.New("已经标记过该帖子")
	ErrReactionRateLimited     = errors.New("今日反应次数已达上限")
	ErrReactionNotFound        = errors.New("反应不存在")
	UnauthorizedError          = errors.New("权限不足")
	UnExpectedError            = errors.New("系统异常，请稍后重试")
)

// errQuotaConflict 配额行并发插入冲突，仅在内部重试
var errQuotaConflict = errors.New("quota row conflict")

var ErrorMap = map[error]int{
	ErrParamInvalid:            BadRequest,
	ErrUserNotFound:            NotFound,
	ErrPostNotFound:            NotFound,
	ErrSysBoxNotFound:          NotFound,
	ErrReactionDisabled:        NotFound,
	ErrReactionPolicyDenied:    Forbidden,
	ErrReactionAlreadyActioned: Conflict,
	ErrReactionRateLimited:     TooManyRequests,
	ErrReactionNotFound:        NotFound,
	UnauthorizedError:          Unauthorized,
	UnExpectedError:            InternalServerError,
}
