package public

import "github.com/refledger/internal/provider"

// Handler 公开接口处理器入口
// 说明：上游事件回调与推广侧查询 API。
type Handler struct {
	*provider.Container
}

// New 创建公开处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
