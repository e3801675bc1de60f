// Package classifier wraps the external AI content classifier. Every failure
// inside this package resolves to a FLAGGED result; callers never see an error.
package classifier

import "errors"

// Decision 分类器给出的结论
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionFlagged  Decision = "FLAGGED"
	DecisionRejected Decision = "REJECTED"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionFlagged, DecisionRejected:
		return true
	}
	return false
}

const (
	MaxReasonLength = 500

	ReasonDisabled    = "AI Analysis Disabled"
	ReasonNotProvided = "No reason provided"
	CategorySystem    = "System Error"
)

var (
	ErrMalformedResponse = errors.New("classifier: malformed response")
	ErrEmptyResponse     = errors.New("classifier: empty response")
	ErrDeclined          = errors.New("classifier: declined to answer")
	ErrImageFetch        = errors.New("classifier: image fetch failed")
	ErrInvalidImageRef   = errors.New("classifier: invalid image reference")
)

// Result 单次分类结果，不落库；只有派生出的状态和原因会写进审核日志
type Result struct {
	Decision   Decision `json:"status"`
	Reason     string   `json:"reason"`
	Categories []string `json:"categories,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	// SystemError 为 true 表示结果来自兜底逻辑而不是分类器本身
	SystemError bool `json:"-"`
}

// Input 待分类的内容
type Input struct {
	Title    string
	Body     *string
	ImageRef *string // http(s) 地址或 data:image/...;base64 内联图片
}

// Image 转发给分类器的原始图片
type Image struct {
	MimeType string
	Data     []byte
}

func scorePtr(v float64) *float64 {
	return &v
}
