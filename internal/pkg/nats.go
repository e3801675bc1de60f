package pkg

import (
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// NATSPublisher 审核事件发布到 <prefix>.<event_type>
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, nats.Name("lee-moderation"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	log.Printf("nats: connected to %s", conn.ConnectedUrl())
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Subject 没有前缀时直接使用事件类型
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	return p.conn.FlushTimeout(nats.DefaultTimeout)
}

func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
