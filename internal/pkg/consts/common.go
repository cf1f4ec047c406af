package consts

const (
	MimePrefixImage = "image"
)

const (
	// 消息类型
	MsgTypeText  = 1
	MsgTypeImage = 2
)

const (
	DefaultAvatarURL = "default_avatar.png"
)
