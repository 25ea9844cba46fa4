package kinauth

import internalmetrics "github.com/hearthchat/kinauth/internal/metrics"

// MetricID identifies one in-process counter.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess counts successful authentications.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure counts wrong-password and unknown-user attempts.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginLocked counts attempts rejected during a lock window.
	MetricLoginLocked = internalmetrics.MetricLoginLocked
	// MetricLockoutTriggered counts threshold crossings that set a lock.
	MetricLockoutTriggered = internalmetrics.MetricLockoutTriggered
	// MetricLockoutCounterReset counts lazy cool-down counter resets.
	MetricLockoutCounterReset = internalmetrics.MetricLockoutCounterReset
	// MetricSessionCreated counts issued session tokens.
	MetricSessionCreated = internalmetrics.MetricSessionCreated
	// MetricSessionRevoked counts explicit token revocations.
	MetricSessionRevoked = internalmetrics.MetricSessionRevoked
	// MetricSessionPurged counts purge-all-for-user operations.
	MetricSessionPurged = internalmetrics.MetricSessionPurged
	// MetricUserCreated counts created accounts.
	MetricUserCreated = internalmetrics.MetricUserCreated
	// MetricPasswordChanged counts successful password changes.
	MetricPasswordChanged = internalmetrics.MetricPasswordChanged
	// MetricLogout counts logout calls that removed a session.
	MetricLogout = internalmetrics.MetricLogout
	// MetricStoreFailure counts backing-store errors folded into denials.
	MetricStoreFailure = internalmetrics.MetricStoreFailure
)

// Metrics holds the atomic counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance; when cfg.Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{Enabled: cfg.Enabled})
}
