package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/service"
)

// MessageHandler 处理留言相关的 HTTP 请求
type MessageHandler struct {
	public   service.PublicAPI
	inbox    service.ProtectedAPI
	maxBytes int64
	log      *zap.Logger
}

// NewMessageHandler 创建留言处理器
func NewMessageHandler(public service.PublicAPI, inbox service.ProtectedAPI, maxBytes int64, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		public:   public,
		inbox:    inbox,
		maxBytes: maxBytes,
		log:      log,
	}
}

// messageResponse 留言响应，_id 与 id 相同，兼容现有前端
type messageResponse struct {
	ID        string    `json:"id"`
	LegacyID  string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		LegacyID:  m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Message:   m.Body,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}

type submitResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Submit 提交联系表单
// @Summary 提交留言
// @Description 访客提交联系表单，校验通过后保存为未读留言
// @Tags 留言
// @Accept json
// @Produce json
// @Param request body domain.ContactInput true "留言内容"
// @Success 201 {object} Response{data=submitResponse} "提交成功"
// @Failure 400 {object} Response "字段缺失或格式错误"
// @Failure 413 {object} Response "请求体过大"
// @Failure 429 {object} Response "请求过于频繁"
// @Failure 503 {object} Response "存储不可用"
// @Router /api/messages [post]
func (h *MessageHandler) Submit(c *gin.Context) {
	var input domain.ContactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, h.maxBytes, err)
		return
	}

	message, err := h.public.Submit(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, "submit message", err)
		return
	}

	CreatedWithMsg(c, MsgMessageSent, submitResponse{ID: message.ID, CreatedAt: message.CreatedAt})
}

// List 列出留言
// @Summary 留言列表
// @Description 按已读状态过滤，默认最新在前
// @Tags 留言
// @Produce json
// @Security BearerAuth
// @Param read query bool false "已读状态"
// @Param order query string false "newest 或 oldest"
// @Param limit query int false "最大条数"
// @Param offset query int false "偏移量"
// @Success 200 {object} Response{data=object{messages=[]messageResponse}} "留言列表"
// @Failure 400 {object} Response "查询参数错误"
// @Failure 401 {object} Response "未认证"
// @Router /api/messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	query := domain.MessageQuery{
		Read:   c.Query("read"),
		Order:  c.Query("order"),
		Limit:  c.Query("limit"),
		Offset: c.Query("offset"),
	}

	messages, err := h.inbox.QueryMessages(c.Request.Context(), bearerToken(c), query)
	if err != nil {
		respondError(c, h.log, "list messages", err)
		return
	}

	items := make([]messageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, toMessageResponse(&messages[i]))
	}
	Success(c, gin.H{"messages": items})
}

// Get 获取单条留言
// @Summary 留言详情
// @Tags 留言
// @Produce json
// @Security BearerAuth
// @Param id path string true "留言 ID"
// @Success 200 {object} Response{data=object{message=messageResponse}} "留言详情"
// @Failure 401 {object} Response "未认证"
// @Failure 404 {object} Response "留言不存在"
// @Router /api/messages/{id} [get]
func (h *MessageHandler) Get(c *gin.Context) {
	message, err := h.inbox.GetMessage(c.Request.Context(), bearerToken(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "get message", err)
		return
	}
	Success(c, gin.H{"message": toMessageResponse(message)})
}

// Stats 获取收件箱统计
// @Summary 留言统计
// @Tags 留言
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=domain.MessageStats} "统计数据"
// @Failure 401 {object} Response "未认证"
// @Router /api/messages/stats [get]
func (h *MessageHandler) Stats(c *gin.Context) {
	stats, err := h.inbox.GetStats(c.Request.Context(), bearerToken(c))
	if err != nil {
		respondError(c, h.log, "message stats", err)
		return
	}
	Success(c, stats)
}

// MarkRead 标记留言为已读
// @Summary 标记已读
// @Description 幂等操作，返回留言与重新计算的统计
// @Tags 留言
// @Produce json
// @Security BearerAuth
// @Param id path string true "留言 ID"
// @Success 200 {object} Response{data=object{message=messageResponse,stats=domain.MessageStats}} "已标记"
// @Failure 401 {object} Response "未认证"
// @Failure 404 {object} Response "留言不存在"
// @Router /api/messages/{id}/read [put]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	result, err := h.inbox.MarkAsRead(c.Request.Context(), bearerToken(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "mark message read", err)
		return
	}

	SuccessWithMsg(c, MsgMarkedRead, gin.H{
		"message": toMessageResponse(result.Message),
		"stats":   result.Stats,
	})
}

// Delete 删除留言
// @Summary 删除留言
// @Tags 留言
// @Produce json
// @Security BearerAuth
// @Param id path string true "留言 ID"
// @Success 200 {object} Response{data=object{stats=domain.MessageStats}} "已删除"
// @Failure 401 {object} Response "未认证"
// @Failure 404 {object} Response "留言不存在"
// @Router /api/messages/{id} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	stats, err := h.inbox.DeleteMessage(c.Request.Context(), bearerToken(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "delete message", err)
		return
	}
	SuccessWithMsg(c, MsgMessageDeleted, gin.H{"stats": stats})
}
