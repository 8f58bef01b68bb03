package domain

import (
	"testing"

	profiledomain "github.com/dairylink/creditledger/internal/creditprofile/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func profileWith(balance, max, pending string) *profiledomain.CreditProfile {
	return &profiledomain.CreditProfile{
		CurrentBalance:    decimal.RequireFromString(balance),
		MaxCreditAmount:   decimal.RequireFromString(max),
		PendingDeductions: decimal.RequireFromString(pending),
	}
}

func TestEvaluate_NoProfile(t *testing.T) {
	d := Evaluate(nil, decimal.NewFromInt(100), OpUse)

	assert.False(t, d.Allowed)
	assert.Equal(t, "no credit profile", d.Reason)
	assert.True(t, d.AvailableCredit.IsZero())
	assert.True(t, d.CreditLimit.IsZero())
}

func TestEvaluate_Frozen(t *testing.T) {
	p := profileWith("3000", "3000", "0")
	reason := "repeated late settlements"
	p.IsFrozen = true
	p.FreezeReason = &reason

	d := Evaluate(p, decimal.NewFromInt(100), OpUse)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "frozen")
	assert.Contains(t, d.Reason, reason)
	assert.True(t, d.UtilizationPercentage.Equal(decimal.NewFromInt(100)))
}

func TestEvaluate_ExceedsAvailableCredit(t *testing.T) {
	p := profileWith("3000", "3000", "0")

	d := Evaluate(p, decimal.NewFromInt(3100), OpUse)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "exceeds available credit")
	assert.Contains(t, d.Reason, "3100.00")
	assert.Contains(t, d.Reason, "3000.00")
}

func TestEvaluate_CriticalUtilization(t *testing.T) {
	// 100 left of a 3000 cap after the purchase puts utilization at 96.67%
	p := profileWith("200", "3000", "0")

	d := Evaluate(p, decimal.NewFromInt(100), OpUse)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "utilization")
	assert.True(t, d.UtilizationPercentage.GreaterThan(decimal.NewFromInt(95)),
		"got %s", d.UtilizationPercentage)
}

func TestEvaluate_WarningUtilizationStillAllowed(t *testing.T) {
	// post-use utilization 85%, above the warning line but below critical
	p := profileWith("500", "3000", "0")

	d := Evaluate(p, decimal.NewFromInt(50), OpUse)

	assert.True(t, d.Allowed)
	assert.NotEmpty(t, d.Warning)
	assert.Empty(t, d.Reason)
}

func TestEvaluate_ObligationsExceedLimit(t *testing.T) {
	p := profileWith("2000", "3000", "2500")

	d := Evaluate(p, decimal.NewFromInt(600), OpUse)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "obligations")
}

func TestEvaluate_ObligationCheckOnlyForUse(t *testing.T) {
	p := profileWith("2000", "3000", "2500")

	d := Evaluate(p, decimal.NewFromInt(600), OpRepay)

	assert.True(t, d.Allowed)
}

func TestEvaluate_AllowedPopulatesEverything(t *testing.T) {
	p := profileWith("3000", "3000", "0")

	d := Evaluate(p, decimal.NewFromInt(300), OpUse)

	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
	assert.True(t, d.AvailableCredit.Equal(decimal.NewFromInt(3000)))
	assert.True(t, d.CreditLimit.Equal(decimal.NewFromInt(3000)))
	assert.True(t, d.UtilizationPercentage.Equal(decimal.NewFromInt(10)),
		"got %s", d.UtilizationPercentage)
}

func TestEvaluate_ZeroCapReportsFullUtilization(t *testing.T) {
	p := profileWith("0", "0", "0")

	d := Evaluate(p, decimal.NewFromInt(0), OpUse)

	assert.False(t, d.Allowed)
	assert.True(t, d.UtilizationPercentage.Equal(decimal.NewFromInt(100)))
}
