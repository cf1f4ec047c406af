package consts

const (
	MediaTempKey = "media:temp:index"
)
