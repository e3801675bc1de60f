package moderation

import (
	"Lee_Moderation/internal/classifier"
	"Lee_Moderation/internal/model"
)

// InitialStatus 把分类结果映射成帖子的初始状态。
// 自动流程既不直接拒绝也不在无法判断时放行：REJECTED 降级为 FLAGGED 等人工确认，
// 未知结论同样进入 FLAGGED。
func InitialStatus(res classifier.Result) model.PostStatus {
	if res.Decision == classifier.DecisionApproved && !res.SystemError {
		return model.StatusApproved
	}
	return model.StatusFlagged
}
