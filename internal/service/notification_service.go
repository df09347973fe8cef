package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/release-queue/internal/config"
	"github.com/spec-kit/release-queue/internal/events"
)

const (
	webhookTimeout       = 5 * time.Second
	deliveryTimeout      = 10 * time.Second
	notificationQueueCap = 256
)

var errNotificationQueueFull = errors.New("notification queue full")

// NotificationService fans domain events out to the log, a Redis channel and
// an optional webhook. Delivery runs on a background goroutine so request
// handlers never wait on Redis or the webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	redis      *redis.Client
	signer     *events.Signer
	logger     *zap.Logger
	cfg        config.NotificationConfig

	queue    chan events.Event
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewNotificationService creates the service. redisClient may be nil.
func NewNotificationService(dispatcher events.Dispatcher, redisClient *redis.Client, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		redis:      redisClient,
		signer:     events.NewSigner(cfg.SigningSecret, "release-queue"),
		logger:     logger,
		cfg:        cfg,
		queue:      make(chan events.Event, notificationQueueCap),
		quit:       make(chan struct{}),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventQueueEntered,
		events.EventQueueExited,
		events.EventFreezeStarted,
		events.EventFreezesEnded,
		events.EventFreezeDeleted,
	} {
		n.dispatcher.Subscribe(eventType, n.enqueue)
	}
}

// Start launches the delivery goroutine.
func (n *NotificationService) Start() {
	n.wg.Add(1)
	go n.run()
}

// Stop drains queued events and waits for the delivery goroutine to exit.
func (n *NotificationService) Stop() {
	n.stopOnce.Do(func() { close(n.quit) })
	n.wg.Wait()
}

func (n *NotificationService) enqueue(_ context.Context, event events.Event) error {
	select {
	case n.queue <- event:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s", errNotificationQueueFull, event.ID)
	}
}

func (n *NotificationService) run() {
	defer n.wg.Done()
	for {
		select {
		case event := <-n.queue:
			n.deliver(event)
		case <-n.quit:
			for {
				select {
				case event := <-n.queue:
					n.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver detaches from the publishing request so a finished request does
// not cancel its notifications.
func (n *NotificationService) deliver(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := n.handle(ctx, event); err != nil {
		n.logger.Warn("notification delivery failed", zap.String("event_id", event.ID), zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("event_id", event.ID), zap.String("actor", event.Actor), zap.Any("payload", event.Payload))

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return errors.Join(
		n.publishRedis(ctx, body),
		n.sendWebhook(event, body),
	)
}

func (n *NotificationService) publishRedis(ctx context.Context, body []byte) error {
	if n.redis == nil || strings.TrimSpace(n.cfg.RedisChannel) == "" {
		return nil
	}
	if err := n.redis.Publish(ctx, n.cfg.RedisChannel, string(body)).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", n.cfg.RedisChannel, err)
	}
	return nil
}

func (n *NotificationService) sendWebhook(event events.Event, body []byte) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	signature, err := n.signer.Sign(event, body)
	if err != nil {
		return fmt.Errorf("sign event: %w", err)
	}

	agent := fiber.Post(n.cfg.WebhookURL)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.Set(events.SignatureHeader, signature)
	agent.Body(body)
	agent.Timeout(webhookTimeout)
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("prepare webhook: %w", err)
	}

	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("deliver webhook: %w", errors.Join(errs...))
	}
	if status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("webhook responded with status %d", status)
	}
	return nil
}
