package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	Client *redis.Client
)

// Options 连接参数，零值字段使用默认值
type Options struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (o Options) redisOptions() *redis.Options {
	if o.PoolSize <= 0 {
		o.PoolSize = 10
	}
	if o.MinIdleConns < 0 || o.MinIdleConns > o.PoolSize {
		o.MinIdleConns = 2
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 2 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 2 * time.Second
	}
	return &redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
	}
}

// Init 初始化全局客户端，连不上时直接返回错误，不带着坏连接启动
func Init(ctx context.Context, o Options) error {
	opts := o.redisOptions()
	Client = redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	return Client.Ping(ctx).Err()
}

func Close() error {
	if Client == nil {
		return nil
	}
	return Client.Close()
}

// client 仓储未显式注入时使用全局客户端
func client(c *redis.Client) *redis.Client {
	if c != nil {
		return c
	}
	return Client
}
