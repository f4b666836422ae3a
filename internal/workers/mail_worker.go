package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nextround/backend/internal/providers/mail"
)

// MailQueue decouples the request path from SMTP. Enqueue only touches
// redis; delivery happens in the worker pool.
type MailQueue interface {
	Enqueue(ctx context.Context, to, subject, body string) error
}

type RedisMailQueue struct {
	Redis  *redis.Client
	Stream string
}

func (q *RedisMailQueue) Enqueue(ctx context.Context, to, subject, body string) error {
	stream := q.Stream
	if stream == "" {
		stream = "mail:stream"
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"to":      to,
			"subject": subject,
			"body":    body,
		},
	}).Err()
}

// MailWorkerPool drains the mail stream with a consumer group and delivers
// through the configured sender.
type MailWorkerPool struct {
	Redis      *redis.Client
	Sender     mail.Sender
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *MailWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Sender == nil {
		return errors.New("MailWorkerPool missing dependency: Redis and Sender must be set")
	}
	if p.Stream == "" {
		p.Stream = "mail:stream"
	}
	if p.Group == "" {
		p.Group = "mail-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "m"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *MailWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *MailWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	to := getStr("to")
	subject := getStr("subject")
	body := getStr("body")
	if to == "" || body == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id": msg.ID,
		"to":       to,
		"subject":  subject,
	})

	if err := p.Sender.Send(ctx, to, subject, body); err != nil {
		log.WithError(err).Error("mail delivery failed")
		return
	}
	log.Debug("mail delivered")
}
