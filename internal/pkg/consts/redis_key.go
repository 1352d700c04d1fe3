package consts

const (
	// TokenBlacklistKey 账号服务登出时写入的 Token 签名
	TokenBlacklistKey = "auth:token:blacklist:"
)

const (
	PostReactionCountKey       = "post:reaction:count:"
	PostReactionCountGenKey    = "post:reaction:count:gen:"
	PostReactionChannelKey     = "post:reaction:channel:"
	UserReactionSummaryKey     = "user:reaction:summary:"
	UserReactionSummaryGenKey  = "user:reaction:summary:gen:"
	ReactionInvalidateRetryKey = "reaction:invalidate:retry"
	ReactionInvalidateWorkKey  = "reaction:invalidate:retry:processing"
)

const (
	ReactionDailyPurgeLock = "lock:reaction:daily:purge"
	ReactionRetryLock      = "lock:reaction:invalidate:retry"
)
