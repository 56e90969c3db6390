package internaldefs

import (
	goPortal "github.com/MrEthical07/goPortal"
)

// Source is what the exporters read on every collection. *goPortal.Portal
// implements it.
type Source interface {
	MetricsSnapshot() goPortal.MetricsSnapshot
	AuditStats() goPortal.AuditStats
}

type Kind uint8

const (
	KindCounter Kind = iota
	KindHistogram
)

// Def names one exported family.
type Def struct {
	ID   goPortal.MetricID
	Name string
	Help string
}

// Family is one exported metric at collection time. Counters carry Value;
// histograms carry cumulative Buckets and Sum in seconds.
type Family struct {
	Def
	Kind    Kind
	Value   uint64
	Buckets [BucketCount]uint64
	Sum     float64
}

// Count is the total number of histogram samples.
func (f Family) Count() uint64 { return f.Buckets[BucketCount-1] }

// CounterDefs lists every exported portal counter in render order.
var CounterDefs = []Def{
	{ID: goPortal.MetricGuardRender, Name: "portal_guard_render_total", Help: "Navigations rendered by the route guard."},
	{ID: goPortal.MetricGuardRedirectLogin, Name: "portal_guard_redirect_login_total", Help: "Unauthenticated navigations redirected to login."},
	{ID: goPortal.MetricGuardRedirectHome, Name: "portal_guard_redirect_home_total", Help: "Navigations redirected to the role home."},
	{ID: goPortal.MetricGuardNotFound, Name: "portal_guard_not_found_total", Help: "Navigations to unknown paths."},
	{ID: goPortal.MetricLoginSuccess, Name: "portal_login_success_total", Help: "Successful logins."},
	{ID: goPortal.MetricLoginFailure, Name: "portal_login_failure_total", Help: "Failed logins."},
	{ID: goPortal.MetricLoginRateLimited, Name: "portal_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: goPortal.MetricSessionCreated, Name: "portal_session_created_total", Help: "Created sessions."},
	{ID: goPortal.MetricSessionRejected, Name: "portal_session_rejected_total", Help: "Tokens that resolved to no session."},
	{ID: goPortal.MetricLogout, Name: "portal_logout_total", Help: "Logouts."},
	{ID: goPortal.MetricIdentifySuccess, Name: "portal_verification_identify_success_total", Help: "Successful identification lookups."},
	{ID: goPortal.MetricIdentifyFailure, Name: "portal_verification_identify_failure_total", Help: "Failed identification lookups."},
	{ID: goPortal.MetricOwnershipSuccess, Name: "portal_verification_ownership_success_total", Help: "Confirmed email ownership checks."},
	{ID: goPortal.MetricOwnershipFailure, Name: "portal_verification_ownership_failure_total", Help: "Failed email ownership checks."},
	{ID: goPortal.MetricAccessRequestSuccess, Name: "portal_verification_access_request_success_total", Help: "Recorded access requests."},
	{ID: goPortal.MetricAccessRequestFailure, Name: "portal_verification_access_request_failure_total", Help: "Failed access requests."},
	{ID: goPortal.MetricVerificationValidationFailure, Name: "portal_verification_validation_failure_total", Help: "Verification submissions rejected locally."},
	{ID: goPortal.MetricCodeSent, Name: "portal_recovery_code_sent_total", Help: "Recovery codes sent."},
	{ID: goPortal.MetricCodeSendFailure, Name: "portal_recovery_code_send_failure_total", Help: "Failed recovery code sends."},
	{ID: goPortal.MetricCodeAccepted, Name: "portal_recovery_code_accepted_total", Help: "Accepted recovery codes."},
	{ID: goPortal.MetricCodeRejected, Name: "portal_recovery_code_rejected_total", Help: "Rejected recovery codes."},
	{ID: goPortal.MetricPasswordResetSuccess, Name: "portal_recovery_reset_success_total", Help: "Successful password resets."},
	{ID: goPortal.MetricPasswordResetFailure, Name: "portal_recovery_reset_failure_total", Help: "Failed password resets."},
	{ID: goPortal.MetricRecoveryValidationFailure, Name: "portal_recovery_validation_failure_total", Help: "Recovery submissions rejected locally."},
	{ID: goPortal.MetricFlowRateLimited, Name: "portal_flow_rate_limited_total", Help: "Flow submissions denied by rate limits."},
	{ID: goPortal.MetricDuplicateSubmission, Name: "portal_flow_duplicate_submission_total", Help: "Submissions refused while another was in flight."},
	{ID: goPortal.MetricFlowSuperseded, Name: "portal_flow_superseded_total", Help: "Backend outcomes discarded after the user went back."},
}

var HistogramDefs = []Def{
	{ID: goPortal.MetricBackendLatency, Name: "portal_backend_latency_seconds", Help: "Backend call latency."},
}

// Audit dispatcher counters. They have no MetricID; Collect reads them from
// AuditStats.
var (
	AuditDelivered = Def{Name: "portal_audit_delivered_total", Help: "Audit events handed to the sink."}
	AuditDropped   = Def{Name: "portal_audit_dropped_total", Help: "Audit events dropped on a full buffer."}
	AuditFailed    = Def{Name: "portal_audit_failed_total", Help: "Audit events whose sink panicked."}
)

const BucketCount = 8

// Bucket upper bounds in seconds, as rendered in the le label, and as
// instrument-name suffixes.
var (
	BucketBounds   = [BucketCount]string{"0.05", "0.1", "0.25", "0.5", "1", "2.5", "5", "+Inf"}
	BucketSuffixes = [BucketCount]string{"0_05", "0_1", "0_25", "0_5", "1", "2_5", "5", "inf"}
)

// Collect reads src once and returns every family in render order. It
// returns nil when metrics are off and the audit dispatcher never saw an
// event.
func Collect(src Source) []Family {
	snap := src.MetricsSnapshot()
	audit := src.AuditStats()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && audit == (goPortal.AuditStats{}) {
		return nil
	}

	out := make([]Family, 0, len(CounterDefs)+len(HistogramDefs)+3)
	for _, def := range CounterDefs {
		out = append(out, Family{Def: def, Kind: KindCounter, Value: snap.Counters[def.ID]})
	}
	for _, def := range HistogramDefs {
		out = append(out, Family{
			Def:     def,
			Kind:    KindHistogram,
			Buckets: cumulative(snap.Histograms[def.ID]),
			Sum:     snap.HistogramSums[def.ID].Seconds(),
		})
	}
	out = append(out,
		Family{Def: AuditDelivered, Kind: KindCounter, Value: audit.Delivered},
		Family{Def: AuditDropped, Kind: KindCounter, Value: audit.Dropped},
		Family{Def: AuditFailed, Kind: KindCounter, Value: audit.Failed},
	)
	return out
}

// cumulative turns per-bucket counts into running totals. Missing buckets
// count as zero; extra ones are ignored.
func cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
