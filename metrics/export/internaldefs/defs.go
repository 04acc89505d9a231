package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one Manager counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one Manager histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricOpenAnonymous, Name: "gosession_open_anonymous_total", Help: "Requests that ended with an anonymous session."},
	{ID: goSession.MetricOpenResumed, Name: "gosession_open_resumed_total", Help: "Requests that resumed a live session."},
	{ID: goSession.MetricInvalidToken, Name: "gosession_invalid_token_total", Help: "Malformed or wrongly signed tokens."},
	{ID: goSession.MetricExpiredRevoked, Name: "gosession_expired_revoked_total", Help: "Expired tokens whose session record was revoked."},
	{ID: goSession.MetricUnknownSession, Name: "gosession_unknown_session_total", Help: "Tokens naming a session without a durable record."},
	{ID: goSession.MetricCodeLogin, Name: "gosession_code_login_total", Help: "Sessions opened from a one-time code."},
	{ID: goSession.MetricCodeReplayed, Name: "gosession_code_replayed_total", Help: "Rejected replays of a one-time code."},
	{ID: goSession.MetricAccountProvisioned, Name: "gosession_account_provisioned_total", Help: "Accounts created on first sign-on."},
	{ID: goSession.MetricTokenIssued, Name: "gosession_token_issued_total", Help: "Session tokens written to responses."},
	{ID: goSession.MetricSessionDeleted, Name: "gosession_session_deleted_total", Help: "Durable session records deleted."},
	{ID: goSession.MetricBackendUnavailable, Name: "gosession_backend_unavailable_total", Help: "Store, replay guard or secret lookup failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricOpenLatency, Name: "gosession_open_latency_seconds", Help: "Open latency histogram."},
}

// DroppedEventsName is the counter for login events lost to backpressure.
const DroppedEventsName = "gosession_login_events_dropped_total"

// BucketCount is the number of histogram buckets including +Inf.
const BucketCount = 8

// HistogramBounds are the finite upper bounds in seconds followed by +Inf.
var HistogramBounds = []string{
	"0.001",
	"0.002",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds for instrument names.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_002",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// UpperBoundsSeconds returns the finite bucket bounds as float seconds.
func UpperBoundsSeconds() []float64 {
	bounds := goSession.HistogramBounds()
	out := make([]float64, len(bounds))
	for i, b := range bounds {
		out[i] = b.Seconds()
	}
	return out
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
