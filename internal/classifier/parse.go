package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// verdict 分类器返回的 JSON。两种格式都接受：
// {"status": "...", "reason": "..."} 以及旧的 {"flagged": true, "categories": [...], "score": 0.8}
type verdict struct {
	Status     *string  `json:"status"`
	Flagged    *bool    `json:"flagged"`
	Reason     *string  `json:"reason"`
	Categories []string `json:"categories"`
	Score      *float64 `json:"score"`
}

// Sanitize 去掉 markdown 代码块包裹，截取第一个 '{' 到最后一个 '}' 之间的内容
func Sanitize(text string) (string, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no json object found", ErrMalformedResponse)
	}
	return text[start : end+1], nil
}

// Parse 严格解析分类器输出；字段类型不对、状态不在枚举内、分数越界都视为格式错误
func Parse(text string) (Result, error) {
	raw, err := Sanitize(text)
	if err != nil {
		return Result{}, err
	}

	var v verdict
	if err = json.Unmarshal([]byte(raw), &v); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var d Decision
	switch {
	case v.Status != nil:
		d = Decision(strings.ToUpper(strings.TrimSpace(*v.Status)))
		if !d.Valid() {
			return Result{}, fmt.Errorf("%w: unknown status %q", ErrMalformedResponse, *v.Status)
		}
	case v.Flagged != nil:
		d = DecisionApproved
		if *v.Flagged {
			d = DecisionFlagged
		}
	default:
		return Result{}, fmt.Errorf("%w: missing status", ErrMalformedResponse)
	}

	if v.Score != nil && (*v.Score < 0 || *v.Score > 1) {
		return Result{}, fmt.Errorf("%w: score %v out of range", ErrMalformedResponse, *v.Score)
	}

	reason := ReasonNotProvided
	if v.Reason != nil && strings.TrimSpace(*v.Reason) != "" {
		reason = strings.TrimSpace(*v.Reason)
	}

	return Result{
		Decision:   d,
		Reason:     truncate(reason, MaxReasonLength),
		Categories: v.Categories,
		Score:      v.Score,
	}, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
