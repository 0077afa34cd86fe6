package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var verdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_verdicts_total",
	Help: "Number of moderation verdicts by profile and verdict",
}, []string{"profile", "verdict"})

var whitelistHitCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_whitelist_hits_total",
	Help: "Number of messages forced SAFE by a whitelisted phrase",
})

var classifierFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_classifier_failures_total",
	Help: "Number of classifier calls that failed open to SAFE",
}, []string{"reason"})

var warningCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_warnings_total",
	Help: "Number of warnings issued",
})

var jailCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_jails_total",
	Help: "Number of jail attempts by result",
}, []string{"result"})

var reviewOpenCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_reviews_opened_total",
	Help: "Number of review open requests by result",
}, []string{"result"})

var reviewResolveCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_reviews_resolved_total",
	Help: "Number of review resolutions by decision and outcome",
}, []string{"decision", "outcome"})

var rejoinBanCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_rejoin_bans_total",
	Help: "Number of jailed users removed on rejoin",
}, []string{"result"})

var notificationFailureCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_notification_failures_total",
	Help: "Number of direct notifications that could not be delivered",
})
