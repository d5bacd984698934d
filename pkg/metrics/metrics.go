package metrics

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

// 引擎侧指标，默认 registry，/metrics 暴露
var (
    HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "feedgraph_http_request_duration_seconds",
        Help:    "HTTP request latency by route.",
        Buckets: prometheus.DefBuckets,
    }, []string{"method", "route", "status"})

    PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
        Name: "feedgraph_posts_published_total",
        Help: "Posts transitioned from draft to published.",
    })

    FanoutWrites = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "feedgraph_fanout_writes_total",
        Help: "Timeline entries created, by timeline kind.",
    }, []string{"kind"})

    FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "feedgraph_feed_requests_total",
        Help: "Feed reads by feed type and sort order.",
    }, []string{"feed", "sort"})

    FeedCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "feedgraph_feed_cache_lookups_total",
        Help: "Communal feed cache lookups by result.",
    }, []string{"result"})

    RateLimited = promauto.NewCounter(prometheus.CounterOpts{
        Name: "feedgraph_posts_rate_limited_total",
        Help: "Post creations rejected by the sliding-window limiter.",
    })

    EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
        Name: "feedgraph_events_dropped_total",
        Help: "Events dropped because the bus queue or a subscriber was full.",
    })
)
