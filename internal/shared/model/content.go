package model

import "time"

// ContentStatus 内容发布状态
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
	StatusArchived  ContentStatus = "archived"
)

// Valid 是否为已知状态
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Page 站点页面
//
// Body 通常是 JSON 块数组（[{"type":"heading","text":"..."}]），
// 无法解析时按纯文本渲染。
type Page struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	Body            string        `json:"body"`
	Status          ContentStatus `json:"status"`
	MetaTitle       string        `json:"meta_title,omitempty"`
	MetaDescription string        `json:"meta_description,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Post 博客文章
type Post struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Excerpt     string        `json:"excerpt,omitempty"`
	Body        string        `json:"body"`
	Status      ContentStatus `json:"status"`
	AuthorID    string        `json:"author_id,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	CoverURL    string        `json:"cover_url,omitempty"`
	Likes       int64         `json:"likes"`
	Dislikes    int64         `json:"dislikes"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// MenuItem 导航菜单项
type MenuItem struct {
	ID        string    `json:"id"`
	Menu      string    `json:"menu"` // header / footer
	Label     string    `json:"label"`
	URL       string    `json:"url"`
	ParentID  string    `json:"parent_id,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting 站点设置（键值对，键唯一）
type Setting struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HomepageBlock 首页内容块（section + key 定位一个值）
type HomepageBlock struct {
	ID        string    `json:"id"`
	Section   string    `json:"section"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Media 媒体文件元数据（对象本身在对象存储中）
type Media struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ObjectKey   string    `json:"object_key"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ModerationStatus 审核状态
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// ModerationItem 审核队列条目（评论、用户提交的代码片段等）
type ModerationItem struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"` // comment / snippet / post
	TargetID   string           `json:"target_id,omitempty"`
	Content    string           `json:"content"`
	AuthorID   string           `json:"author_id,omitempty"`
	Status     ModerationStatus `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	ReviewedBy string           `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// ResultCode 失败原因分类（HTTP 层据此选择状态码）
type ResultCode string

const (
	CodeInvalid     ResultCode = "invalid"
	CodeNotFound    ResultCode = "not_found"
	CodeUnavailable ResultCode = "unavailable"
	CodeInternal    ResultCode = "internal"
)

// Result 内容操作结果；操作从不向调用方返回 error
type Result struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Code    ResultCode `json:"code,omitempty"`
	ID      string     `json:"id,omitempty"`
}

// OK 成功结果
func OK(id string) Result {
	return Result{Success: true, ID: id}
}

// Fail 失败结果
func Fail(msg string) Result {
	return Result{Success: false, Error: msg, Code: CodeInternal}
}

// Invalid 输入校验失败
func Invalid(msg string) Result {
	return Result{Success: false, Error: msg, Code: CodeInvalid}
}

// NotFound 目标不存在
func NotFound(msg string) Result {
	return Result{Success: false, Error: msg, Code: CodeNotFound}
}

// Unavailable 依赖的后端未配置或不可用
func Unavailable(msg string) Result {
	return Result{Success: false, Error: msg, Code: CodeUnavailable}
}
