package consts

const (
	DefaultAvatarURL = "default_avatar.png"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)
