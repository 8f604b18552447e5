package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	realtimeConnectionsActive prometheus.Gauge
	realtimeHandshakesTotal   *prometheus.CounterVec
	realtimeEventsEmitted     *prometheus.CounterVec
	realtimeEventsDropped     *prometheus.CounterVec
	realtimeInboundRejected   *prometheus.CounterVec

	chatMessagesSent      *prometheus.CounterVec
	notificationsCreated  prometheus.Counter
	chatRoomCacheLookups  *prometheus.CounterVec
	domainEventsPublished *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		realtimeConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_connections_active",
			Help: "Number of websocket connections currently served by the gateway.",
		})

		realtimeHandshakesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_handshakes_total",
			Help: "Gateway handshakes by outcome.",
		}, []string{"outcome"})

		realtimeEventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_emitted_total",
			Help: "Outbound events delivered to connections.",
		}, []string{"event"})

		realtimeEventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Outbound events dropped because of slow consumers or invalid payloads.",
		}, []string{"event", "reason"})

		realtimeInboundRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_inbound_rejected_total",
			Help: "Inbound client frames that were ignored.",
		}, []string{"reason"})

		chatMessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Chat messages persisted, by type.",
		}, []string{"type"})

		notificationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications persisted.",
		})

		chatRoomCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_room_cache_lookups_total",
			Help: "Chat room participant cache lookups by result.",
		}, []string{"result"})

		domainEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Domain events handed to the message broker, by subject and outcome.",
		}, []string{"subject", "outcome"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			realtimeConnectionsActive, realtimeHandshakesTotal, realtimeEventsEmitted, realtimeEventsDropped, realtimeInboundRejected,
			chatMessagesSent, notificationsCreated, chatRoomCacheLookups, domainEventsPublished,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

func RealtimeConnectionsActive() prometheus.Gauge {
	RegisterMetrics()
	return realtimeConnectionsActive
}

func RealtimeHandshakes() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeHandshakesTotal
}

func RealtimeEventsEmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsEmitted
}

func RealtimeEventsDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsDropped
}

func RealtimeInboundRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeInboundRejected
}

func ChatMessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesSent
}

func NotificationsCreated() prometheus.Counter {
	RegisterMetrics()
	return notificationsCreated
}

func ChatRoomCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return chatRoomCacheLookups
}

func DomainEventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return domainEventsPublished
}

var roomGaugesOnce sync.Once

// RegisterRoomGauges exposes live room registry sizes, sampled at scrape time.
func RegisterRoomGauges(rooms, subscribers func() float64) {
	roomGaugesOnce.Do(func() {
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "realtime_rooms",
				Help: "Rooms currently held by the gateway registry.",
			}, rooms),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "realtime_room_subscriptions",
				Help: "Room subscriptions currently held by the gateway registry.",
			}, subscribers),
		)
	})
}
