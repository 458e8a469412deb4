package dbConverter

import (
	"testing"
	"time"

	"github.com/KotFed0t/finplan/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateNullableFields(t *testing.T) {
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	owner := uuid.New()
	tpl := model.Template{ID: uuid.New(), UserID: &owner, EndDate: &end, Frequency: model.FrequencyWeekly}

	row := ToDbTemplate(tpl)
	assert.True(t, row.UserID.Valid)
	assert.False(t, row.PortfolioID.Valid)
	assert.True(t, row.EndDate.Valid)

	back := ConvertTemplate(row)
	require.NotNil(t, back.UserID)
	assert.Equal(t, owner, *back.UserID)
	assert.Nil(t, back.InvestmentID)
	require.NotNil(t, back.EndDate)
	assert.True(t, end.Equal(*back.EndDate))
}

func TestCouponNullableFields(t *testing.T) {
	maxDiscount := decimal.NewFromInt(500)
	perUser := 2
	c := model.Coupon{ID: uuid.New(), Code: "X", MaxDiscountAmount: &maxDiscount, MaxUsesPerUser: &perUser}

	back := ConvertCoupon(ToDbCoupon(c))
	assert.Nil(t, back.MaxUses)
	assert.Nil(t, back.MinOrderAmount)
	require.NotNil(t, back.MaxDiscountAmount)
	assert.True(t, maxDiscount.Equal(*back.MaxDiscountAmount))
	require.NotNil(t, back.MaxUsesPerUser)
	assert.Equal(t, 2, *back.MaxUsesPerUser)
}
