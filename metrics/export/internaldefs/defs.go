package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/clinicauth"
)

const namePrefix = "clinicauth_"

// BucketCount is the number of latency buckets, including +Inf.
const BucketCount = len(clinicauth.HistogramBucketBounds) + 1

type CounterDef struct {
	ID   clinicauth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   clinicauth.MetricID
	Name string
	Help string
}

var counterHelp = map[clinicauth.MetricID]string{
	clinicauth.MetricLoginSuccess:                "Logins that issued a session.",
	clinicauth.MetricLoginFailure:                "Password logins rejected for bad credentials.",
	clinicauth.MetricLoginRateLimited:            "Password logins refused by the failure limiter.",
	clinicauth.MetricLoginPasswordless:           "Password logins against accounts without a password.",
	clinicauth.MetricOTPRequired:                 "Logins challenged with a one-time code.",
	clinicauth.MetricOTPSent:                     "One-time codes sent.",
	clinicauth.MetricOTPSuccess:                  "One-time codes accepted.",
	clinicauth.MetricOTPFailure:                  "One-time codes rejected.",
	clinicauth.MetricOTPExpired:                  "One-time codes presented after expiry.",
	clinicauth.MetricOTPAttemptsExceeded:         "OTP challenges locked after too many wrong codes.",
	clinicauth.MetricOTPResendCooldown:           "OTP resends refused by the cooldown.",
	clinicauth.MetricMagicLinkSent:               "Magic links sent.",
	clinicauth.MetricMagicLinkSuccess:            "Magic links redeemed.",
	clinicauth.MetricMagicLinkFailure:            "Magic links rejected.",
	clinicauth.MetricSessionCreated:              "Sessions issued.",
	clinicauth.MetricSessionValidated:            "Session cookies accepted.",
	clinicauth.MetricSessionRejected:             "Session cookies rejected.",
	clinicauth.MetricLogout:                      "Sessions revoked by logout.",
	clinicauth.MetricDeviceTrusted:               "Devices remembered after a one-time code.",
	clinicauth.MetricDeviceForgotten:             "Devices removed by their owner.",
	clinicauth.MetricInviteSent:                  "Admin invites sent or resent.",
	clinicauth.MetricInviteAccepted:              "Admin invites accepted.",
	clinicauth.MetricInviteFailure:               "Admin invite checks that failed.",
	clinicauth.MetricInviteDeleted:               "Pending admin invites deleted.",
	clinicauth.MetricPasswordResetRequest:        "Password reset requests.",
	clinicauth.MetricPasswordResetConfirmSuccess: "Password resets completed.",
	clinicauth.MetricPasswordResetConfirmFailure: "Password reset confirmations rejected.",
	clinicauth.MetricPasswordResetRateLimited:    "Password reset calls refused by the limiter.",
	clinicauth.MetricPasswordRehashed:            "Password hashes upgraded at login.",
	clinicauth.MetricAccountCreated:              "Accounts created.",
	clinicauth.MetricNotifyFailure:               "Notifications the sender failed to deliver.",
	clinicauth.MetricRateLimitHit:                "Calls refused by any limiter.",
}

// CounterDefs lists every counter in MetricID order.
var CounterDefs = buildCounterDefs()

var HistogramDefs = []HistogramDef{
	{ID: clinicauth.MetricValidateLatency, Name: namePrefix + "validate_latency_seconds", Help: "Session validation latency histogram."},
}

// HistogramBounds are the Prometheus "le" labels, ending with +Inf.
var HistogramBounds = buildBounds(func(s string) string { return s }, "+Inf")

// HistogramBoundSuffix are metric-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = buildBounds(func(s string) string { return strings.ReplaceAll(s, ".", "_") }, "inf")

func buildCounterDefs() []CounterDef {
	defs := make([]CounterDef, 0, len(counterHelp))
	for _, id := range clinicauth.MetricIDs() {
		help, ok := counterHelp[id]
		if !ok {
			continue
		}
		defs = append(defs, CounterDef{ID: id, Name: namePrefix + id.String() + "_total", Help: help})
	}
	return defs
}

func buildBounds(format func(string) string, last string) []string {
	out := make([]string, 0, BucketCount)
	for _, b := range clinicauth.HistogramBucketBounds {
		out = append(out, format(strconv.FormatFloat(b.Seconds(), 'f', -1, 64)))
	}
	return append(out, last)
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
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
