package domain

import (
	"strconv"
	"strings"
	"time"
)

// Message 表示访客通过联系表单提交的一条留言
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Email     string    `json:"email" gorm:"type:varchar(254);not null"`
	Body      string    `json:"message" gorm:"column:body;type:text;not null"`
	Read      bool      `json:"read" gorm:"column:is_read;default:false;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// TableName 指定 GORM 表名
func (Message) TableName() string {
	return "contact_messages"
}

// MessageOrder 列表排序方向
type MessageOrder string

const (
	OrderNewest MessageOrder = "newest"
	OrderOldest MessageOrder = "oldest"
)

// MessageFilter 列表查询条件，零值表示全部留言、最新在前
type MessageFilter struct {
	Read   *bool
	Order  MessageOrder
	Limit  int
	Offset int
}

// Oldest 是否按时间升序
func (f MessageFilter) Oldest() bool {
	return f.Order == OrderOldest
}

// Matches 判断留言是否满足已读过滤条件
func (f MessageFilter) Matches(m *Message) bool {
	return f.Read == nil || *f.Read == m.Read
}

// MessageQuery 列表查询的原始参数，由 ParseMessageQuery 转换为 MessageFilter
type MessageQuery struct {
	Read   string
	Order  string
	Limit  string
	Offset string
}

// ParseMessageQuery 解析原始查询参数，空值表示不限制
func ParseMessageQuery(q MessageQuery) (MessageFilter, error) {
	var filter MessageFilter

	if raw := strings.TrimSpace(q.Read); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, NewValidationError("read", "read must be true or false")
		}
		filter.Read = &read
	}

	filter.Order = MessageOrder(strings.ToLower(strings.TrimSpace(q.Order)))

	var err error
	if filter.Limit, err = parseQueryInt("limit", q.Limit); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseQueryInt("offset", q.Offset); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseQueryInt(key, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewValidationError(key, key+" must be an integer")
	}
	return n, nil
}

// MessageStats 收件箱聚合计数
type MessageStats struct {
	Total    int64 `json:"total"`
	Unread   int64 `json:"unread"`
	Today    int64 `json:"today"`
	ThisWeek int64 `json:"thisWeek"`
}

// ContactInput 公开表单提交的原始输入
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}
