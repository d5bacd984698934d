package event

import (
    "context"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/d60-Lab/feedgraph/pkg/logger"
    "github.com/d60-Lab/feedgraph/pkg/metrics"
)

// Type 引擎对外广播的事件类型
type Type string

const (
    TypePostPublished Type = "post_published"
    TypePostLiked     Type = "post_liked"
    TypeCommentAdded  Type = "comment_added"
    TypePostShared    Type = "post_shared"
)

// Event 旁路通知事件：投递是尽力而为，写路径不等它也不因它失败。
type Event struct {
    Type    Type
    PostID  string
    ActorID string
    At      time.Time
    Meta    map[string]string
}

// Subscriber 订阅者接收通道
type Subscriber chan Event

// Bus 进程内事件总线：缓冲队列 + 固定 worker 分发。
// 队列或订阅者打满时丢弃并告警，绝不阻塞发布方。
type Bus struct {
    mu   sync.RWMutex
    subs map[Subscriber]struct{}

    ch     chan Event
    stopCh chan struct{}

    workers int
}

func NewBus(queueSize, workers int) *Bus {
    if queueSize <= 0 {
        queueSize = 4096
    }
    if workers <= 0 {
        workers = 2
    }
    return &Bus{
        subs:    make(map[Subscriber]struct{}),
        ch:      make(chan Event, queueSize),
        stopCh:  make(chan struct{}),
        workers: workers,
    }
}

// Start 启动分发 worker；返回停止函数。
func (b *Bus) Start() func(context.Context) error {
    for i := 0; i < b.workers; i++ {
        go b.loop()
    }
    return func(ctx context.Context) error {
        close(b.stopCh)
        // 等待队列自然排空一小段时间
        deadline := time.After(2 * time.Second)
        for {
            select {
            case <-deadline:
                return nil
            default:
                if len(b.ch) == 0 {
                    return nil
                }
                time.Sleep(20 * time.Millisecond)
            }
        }
    }
}

func (b *Bus) loop() {
    for {
        select {
        case evt := <-b.ch:
            b.dispatch(evt)
        case <-b.stopCh:
            return
        }
    }
}

func (b *Bus) dispatch(evt Event) {
    b.mu.RLock()
    defer b.mu.RUnlock()
    for sub := range b.subs {
        select {
        case sub <- evt:
        default:
            metrics.EventsDropped.Inc()
            logger.Warn("event subscriber full, drop",
                zap.String("type", string(evt.Type)), zap.String("post", evt.PostID))
        }
    }
}

// Subscribe 注册订阅者；buffer 决定该订阅者可积压多少事件。
func (b *Bus) Subscribe(buffer int) Subscriber {
    if buffer <= 0 {
        buffer = 64
    }
    sub := make(Subscriber, buffer)
    b.mu.Lock()
    b.subs[sub] = struct{}{}
    b.mu.Unlock()
    return sub
}

// Unsubscribe 注销并关闭订阅通道。
func (b *Bus) Unsubscribe(sub Subscriber) {
    b.mu.Lock()
    if _, ok := b.subs[sub]; ok {
        delete(b.subs, sub)
        close(sub)
    }
    b.mu.Unlock()
}

// Publish 非阻塞发布：总线打满时丢弃并告警。
func (b *Bus) Publish(evt Event) {
    if evt.At.IsZero() {
        evt.At = time.Now()
    }
    select {
    case b.ch <- evt:
    default:
        metrics.EventsDropped.Inc()
        logger.Warn("event bus full, drop",
            zap.String("type", string(evt.Type)), zap.String("post", evt.PostID))
    }
}

// QueueLen 当前队列长度（采样值）。
func (b *Bus) QueueLen() int { return len(b.ch) }
