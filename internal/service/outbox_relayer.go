package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"time"

	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/pkg"
)

const (
	DefaultRelayBatch    = 200
	DefaultRelayInterval = time.Second
	DefaultRelayRetry    = 5
)

// EventStore outbox 表的读写
type EventStore interface {
	PendingEvents(ctx context.Context, limit, maxRetry int) ([]model.ModerationEvent, error)
	MarkEventSent(ctx context.Context, id uint64) error
	MarkEventFailed(ctx context.Context, id uint64) error
}

type Sender func(ctx context.Context, ev *model.ModerationEvent) error

// OutboxRelayer 定时把审核事件投递到消息系统，至少一次
type OutboxRelayer struct {
	repo      EventStore
	batchSize int
	interval  time.Duration
	maxRetry  int
	sender    Sender
}

func NewOutboxRelayer(repo EventStore, sender Sender, batchSize int, interval time.Duration, maxRetry int) *OutboxRelayer {
	if batchSize <= 0 {
		batchSize = DefaultRelayBatch
	}
	if interval <= 0 {
		interval = DefaultRelayInterval
	}
	if maxRetry <= 0 {
		maxRetry = DefaultRelayRetry
	}
	return &OutboxRelayer{
		repo:      repo,
		batchSize: batchSize,
		interval:  interval,
		maxRetry:  maxRetry,
		sender:    sender,
	}
}

// Run outbox 启动器，ctx 取消后退出
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce 按 id 顺序投递一批事件，返回成功数量
func (r *OutboxRelayer) drainOnce(ctx context.Context) int {
	rows, err := r.repo.PendingEvents(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		log.Printf("outbox: query err: %v", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ev := rows[i]
		if err = r.sender(ctx, &ev); err != nil {
			log.Printf("outbox: send event %s (%s) failed, retry=%d: %v", ev.EventID, ev.EventType, ev.Retry+1, err)
			if err = r.repo.MarkEventFailed(ctx, ev.ID); err != nil {
				log.Printf("outbox: mark failed err: %v", err)
			}
			continue
		}
		if err = r.repo.MarkEventSent(ctx, ev.ID); err != nil {
			log.Printf("outbox: mark sent err: %v", err)
			continue
		}
		sent++
	}
	return sent
}

// LogSender 只打印事件，用于本地开发
func LogSender(_ context.Context, ev *model.ModerationEvent) error {
	log.Printf("outbox: SEND type=%s post=%d payload=%s", ev.EventType, ev.PostID, ev.Payload)
	return nil
}

type kafkaSink interface {
	Send(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// KafkaSender 以帖子 id 为 key 写入 kafka
func KafkaSender(p kafkaSink) Sender {
	return func(ctx context.Context, ev *model.ModerationEvent) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ev.PostID), []byte(ev.Payload), map[string]string{
			"event_id":   ev.EventID,
			"event_type": ev.EventType,
		})
	}
}

type natsSink interface {
	Subject(eventType string) string
	Publish(subject string, data []byte) error
}

// NATSSender 发布到 <subject>.<event_type>
func NATSSender(p natsSink) Sender {
	return func(_ context.Context, ev *model.ModerationEvent) error {
		return p.Publish(p.Subject(ev.EventType), []byte(ev.Payload))
	}
}

// MultiSender 按顺序调用，遇到第一个失败立即返回，整条事件稍后重试。
// 排在失败者之后的 sender 本轮不会执行，所以无法去重的副作用（比如邮件）要放在最后
func MultiSender(senders ...Sender) Sender {
	return func(ctx context.Context, ev *model.ModerationEvent) error {
		for i, s := range senders {
			if err := s(ctx, ev); err != nil {
				return fmt.Errorf("sender %d: %w", i, err)
			}
		}
		return nil
	}
}

type mailer interface {
	Send(to, subject, htmlBody string) error
}

type userFinder interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
}

// AuthorNotifier 帖子被人工拒绝时通知作者，其余事件忽略
func AuthorNotifier(users userFinder, m mailer) Sender {
	return func(ctx context.Context, ev *model.ModerationEvent) error {
		if ev.EventType != model.EventPostModerated {
			return nil
		}
		var p model.EventPayload
		if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if p.Status != model.StatusRejected {
			return nil
		}
		author, err := users.FindByID(ctx, p.AuthorID)
		if err != nil {
			return err
		}
		body := fmt.Sprintf("<p>Hi %s,</p><p>Your post #%d was removed by a moderator.</p><p>Reason: %s</p>",
			html.EscapeString(author.Username), p.PostID, html.EscapeString(p.Reason))
		return m.Send(author.Email, "Your post was removed", body)
	}
}
