package domain

import (
	"fmt"

	profiledomain "github.com/dairylink/creditledger/internal/creditprofile/domain"
	"github.com/shopspring/decimal"
)

type Operation string

const (
	OpGrant      Operation = "grant"
	OpUse        Operation = "use"
	OpRepay      Operation = "repay"
	OpAdjust     Operation = "adjust"
	OpSettlement Operation = "settlement"
)

// utilization thresholds, in percent
var (
	utilizationCritical = decimal.NewFromInt(95)
	utilizationWarning  = decimal.NewFromInt(80)
	hundred             = decimal.NewFromInt(100)
)

// Decision is the gate's verdict. All fields are populated on allow and deny
// alike so callers can log utilization either way.
type Decision struct {
	Allowed               bool            `json:"allowed"`
	Reason                string          `json:"reason,omitempty"`
	Warning               string          `json:"warning,omitempty"`
	AvailableCredit       decimal.Decimal `json:"available_credit"`
	CreditLimit           decimal.Decimal `json:"credit_limit"`
	UtilizationPercentage decimal.Decimal `json:"utilization_percentage"`
}

// Evaluate composes the frozen-state, balance, utilization, and obligation
// checks for one requested amount. Pure function, first failing check wins.
func Evaluate(profile *profiledomain.CreditProfile, amount decimal.Decimal, op Operation) Decision {
	if profile == nil {
		return Decision{
			Reason:                "no credit profile",
			AvailableCredit:       decimal.Zero,
			CreditLimit:           decimal.Zero,
			UtilizationPercentage: decimal.Zero,
		}
	}

	base := Decision{
		AvailableCredit: profile.CurrentBalance.Round(2),
		CreditLimit:     profile.MaxCreditAmount.Round(2),
	}

	if profile.IsFrozen {
		reason := "account is frozen"
		if profile.FreezeReason != nil && *profile.FreezeReason != "" {
			reason = fmt.Sprintf("account is frozen: %s", *profile.FreezeReason)
		}
		base.Reason = reason
		base.UtilizationPercentage = hundred
		return base
	}

	if amount.GreaterThan(profile.CurrentBalance) {
		base.Reason = fmt.Sprintf("requested amount %s exceeds available credit %s",
			amount.StringFixed(2), profile.CurrentBalance.StringFixed(2))
		base.UtilizationPercentage = utilization(profile.MaxCreditAmount, profile.CurrentBalance)
		return base
	}

	projected := utilization(profile.MaxCreditAmount, profile.CurrentBalance.Sub(amount))
	base.UtilizationPercentage = projected
	if projected.GreaterThan(utilizationCritical) {
		base.Reason = fmt.Sprintf("credit utilization would reach %s%%, above the %s%% limit",
			projected.StringFixed(1), utilizationCritical.String())
		return base
	}
	if projected.GreaterThan(utilizationWarning) {
		base.Warning = fmt.Sprintf("credit utilization at %s%%", projected.StringFixed(1))
	}

	if op == OpUse {
		obligations := profile.PendingDeductions.Add(amount)
		if obligations.GreaterThan(profile.MaxCreditAmount) {
			base.Reason = fmt.Sprintf("total obligations %s would exceed credit limit %s",
				obligations.StringFixed(2), profile.MaxCreditAmount.StringFixed(2))
			return base
		}
	}

	base.Allowed = true
	return base
}

// utilization reports how much of the cap is consumed once the balance
// stands at remaining.
func utilization(max, remaining decimal.Decimal) decimal.Decimal {
	if !max.IsPositive() {
		return hundred
	}
	return max.Sub(remaining).Div(max).Mul(hundred).Round(2)
}
