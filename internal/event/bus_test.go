package event

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
    bus := NewBus(16, 1)
    stop := bus.Start()
    defer stop(context.Background())

    sub := bus.Subscribe(4)
    defer bus.Unsubscribe(sub)

    bus.Publish(Event{Type: TypePostPublished, PostID: "p1", ActorID: "alice"})

    select {
    case evt := <-sub:
        require.Equal(t, TypePostPublished, evt.Type)
        require.Equal(t, "p1", evt.PostID)
        require.Equal(t, "alice", evt.ActorID)
        require.False(t, evt.At.IsZero()) // Publish 补齐时间戳
    case <-time.After(2 * time.Second):
        t.Fatal("event not delivered")
    }
}

func TestBusPublishNeverBlocks(t *testing.T) {
    // 不启动 worker，队列容量 1：第二条直接丢弃而不是卡住发布方
    bus := NewBus(1, 1)

    bus.Publish(Event{Type: TypePostLiked, PostID: "p1"})
    bus.Publish(Event{Type: TypePostLiked, PostID: "p2"})

    require.Equal(t, 1, bus.QueueLen())
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
    bus := NewBus(16, 1)
    sub := bus.Subscribe(1)

    // 直接走分发路径，订阅者缓冲 1：第二条丢弃
    bus.dispatch(Event{Type: TypeCommentAdded, PostID: "p1", At: time.Now()})
    bus.dispatch(Event{Type: TypeCommentAdded, PostID: "p2", At: time.Now()})

    evt := <-sub
    require.Equal(t, "p1", evt.PostID)
    require.Empty(t, sub) // p2 没进来
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
    bus := NewBus(16, 1)
    sub := bus.Subscribe(4)

    bus.Unsubscribe(sub)
    _, ok := <-sub
    require.False(t, ok)

    // 重复注销不 panic
    bus.Unsubscribe(sub)
}
