package clinicauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginPasswordless
	MetricOTPRequired
	MetricOTPSent
	MetricOTPSuccess
	MetricOTPFailure
	MetricOTPExpired
	MetricOTPAttemptsExceeded
	MetricOTPResendCooldown
	MetricMagicLinkSent
	MetricMagicLinkSuccess
	MetricMagicLinkFailure
	MetricSessionCreated
	MetricSessionValidated
	MetricSessionRejected
	MetricLogout
	MetricDeviceTrusted
	MetricDeviceForgotten
	MetricInviteSent
	MetricInviteAccepted
	MetricInviteFailure
	MetricInviteDeleted
	MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricPasswordResetRateLimited
	MetricPasswordRehashed
	MetricAccountCreated
	MetricNotifyFailure
	// MetricRateLimitHit counts every throttled call regardless of flow.
	MetricRateLimitHit
	// MetricValidateLatency is the only metric with a latency histogram.
	MetricValidateLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:                "login_success",
	MetricLoginFailure:                "login_failure",
	MetricLoginRateLimited:            "login_rate_limited",
	MetricLoginPasswordless:           "login_passwordless",
	MetricOTPRequired:                 "otp_required",
	MetricOTPSent:                     "otp_sent",
	MetricOTPSuccess:                  "otp_success",
	MetricOTPFailure:                  "otp_failure",
	MetricOTPExpired:                  "otp_expired",
	MetricOTPAttemptsExceeded:         "otp_attempts_exceeded",
	MetricOTPResendCooldown:           "otp_resend_cooldown",
	MetricMagicLinkSent:               "magic_link_sent",
	MetricMagicLinkSuccess:            "magic_link_success",
	MetricMagicLinkFailure:            "magic_link_failure",
	MetricSessionCreated:              "session_created",
	MetricSessionValidated:            "session_validated",
	MetricSessionRejected:             "session_rejected",
	MetricLogout:                      "logout",
	MetricDeviceTrusted:               "device_trusted",
	MetricDeviceForgotten:             "device_forgotten",
	MetricInviteSent:                  "invite_sent",
	MetricInviteAccepted:              "invite_accepted",
	MetricInviteFailure:               "invite_failure",
	MetricInviteDeleted:               "invite_deleted",
	MetricPasswordResetRequest:        "password_reset_request",
	MetricPasswordResetConfirmSuccess: "password_reset_confirm_success",
	MetricPasswordResetConfirmFailure: "password_reset_confirm_failure",
	MetricPasswordResetRateLimited:    "password_reset_rate_limited",
	MetricPasswordRehashed:            "password_rehashed",
	MetricAccountCreated:              "account_created",
	MetricNotifyFailure:               "notify_failure",
	MetricRateLimitHit:                "rate_limit_hit",
	MetricValidateLatency:             "validate_latency",
}

// String returns the snake_case metric name used by exporters.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs lists every defined metric in declaration order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBucketBounds are the upper bounds of the latency buckets. The last
// bucket is unbounded.
var HistogramBucketBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. A nil or disabled Metrics ignores
// every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram of id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics return empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBucketBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
