package dbConverter

import (
	"database/sql"
	"time"

	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/dbModel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func ConvertUser(u dbModel.User) model.User {
	return model.User{
		ID:        u.ID,
		ChatID:    nullInt64Ptr(u.ChatID),
		CreatedAt: u.CreatedAt,
	}
}

func ConvertPortfolio(p dbModel.Portfolio) model.Portfolio {
	return model.Portfolio{
		ID:          p.ID,
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		RiskLevel:   model.RiskLevel(p.RiskLevel),
		Currency:    p.Currency,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToDbPortfolio(p model.Portfolio) dbModel.Portfolio {
	return dbModel.Portfolio{
		ID:          p.ID,
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		RiskLevel:   string(p.RiskLevel),
		Currency:    p.Currency,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ConvertInvestment(i dbModel.Investment) model.Investment {
	return model.Investment{
		ID:                 i.ID,
		PortfolioID:        i.PortfolioID,
		UserID:             i.UserID,
		Name:               i.Name,
		Symbol:             i.Symbol,
		Type:               model.InvestmentType(i.Type),
		Units:              i.Units,
		AverageCost:        i.AverageCost,
		CurrentPrice:       i.CurrentPrice,
		TotalInvested:      i.TotalInvested,
		CurrentValue:       i.CurrentValue,
		GainLoss:           i.GainLoss,
		GainLossPercentage: i.GainLossPercentage,
		DividendEarned:     i.DividendEarned,
		Platform:           i.Platform,
		PurchaseDate:       model.DateOf(i.PurchaseDate),
		Status:             model.InvestmentStatus(i.Status),
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

func ToDbInvestment(i model.Investment) dbModel.Investment {
	return dbModel.Investment{
		ID:                 i.ID,
		PortfolioID:        i.PortfolioID,
		UserID:             i.UserID,
		Name:               i.Name,
		Symbol:             i.Symbol,
		Type:               string(i.Type),
		Units:              i.Units,
		AverageCost:        i.AverageCost,
		CurrentPrice:       i.CurrentPrice,
		TotalInvested:      i.TotalInvested,
		CurrentValue:       i.CurrentValue,
		GainLoss:           i.GainLoss,
		GainLossPercentage: i.GainLossPercentage,
		DividendEarned:     i.DividendEarned,
		Platform:           i.Platform,
		PurchaseDate:       i.PurchaseDate,
		Status:             string(i.Status),
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

func ConvertPricePoint(p dbModel.PricePoint) model.PricePoint {
	return model.PricePoint{
		InvestmentID: p.InvestmentID,
		Price:        p.Price,
		RecordedOn:   model.DateOf(p.RecordedOn),
		CreatedAt:    p.CreatedAt,
	}
}

func ConvertTransaction(t dbModel.Transaction) model.Transaction {
	return model.Transaction{
		ID:              t.ID,
		InvestmentID:    t.InvestmentID,
		PortfolioID:     t.PortfolioID,
		UserID:          t.UserID,
		TemplateID:      nullUUIDPtr(t.TemplateID),
		Type:            model.TransactionType(t.Type),
		Units:           t.Units,
		PricePerUnit:    t.PricePerUnit,
		TotalAmount:     t.TotalAmount,
		BrokerageFee:    t.BrokerageFee,
		TaxAmount:       t.TaxAmount,
		OtherCharges:    t.OtherCharges,
		NetAmount:       t.NetAmount,
		TransactionDate: model.DateOf(t.TransactionDate),
		Platform:        t.Platform,
		Notes:           t.Notes,
		CreatedAt:       t.CreatedAt,
	}
}

func ToDbTransaction(t model.Transaction) dbModel.Transaction {
	return dbModel.Transaction{
		ID:              t.ID,
		InvestmentID:    t.InvestmentID,
		PortfolioID:     t.PortfolioID,
		UserID:          t.UserID,
		TemplateID:      toNullUUID(t.TemplateID),
		Type:            string(t.Type),
		Units:           t.Units,
		PricePerUnit:    t.PricePerUnit,
		TotalAmount:     t.TotalAmount,
		BrokerageFee:    t.BrokerageFee,
		TaxAmount:       t.TaxAmount,
		OtherCharges:    t.OtherCharges,
		NetAmount:       t.NetAmount,
		TransactionDate: t.TransactionDate,
		Platform:        t.Platform,
		Notes:           t.Notes,
		CreatedAt:       t.CreatedAt,
	}
}

func ConvertTemplate(t dbModel.Template) model.Template {
	return model.Template{
		ID:                  t.ID,
		UserID:              nullUUIDPtr(t.UserID),
		Name:                t.Name,
		Description:         t.Description,
		IsGlobal:            t.IsGlobal,
		PortfolioID:         nullUUIDPtr(t.PortfolioID),
		InvestmentID:        nullUUIDPtr(t.InvestmentID),
		InvestmentType:      model.InvestmentType(t.InvestmentType),
		AmountPerInvestment: t.AmountPerInvestment,
		Frequency:           model.Frequency(t.Frequency),
		IntervalValue:       t.IntervalValue,
		StartDate:           model.DateOf(t.StartDate),
		EndDate:             nullDatePtr(t.EndDate),
		NextExecution:       model.DateOf(t.NextExecution),
		TotalExecuted:       t.TotalExecuted,
		TotalInvested:       t.TotalInvested,
		UsageCount:          t.UsageCount,
		AutoExecute:         t.AutoExecute,
		Status:              model.TemplateStatus(t.Status),
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func ToDbTemplate(t model.Template) dbModel.Template {
	return dbModel.Template{
		ID:                  t.ID,
		UserID:              toNullUUID(t.UserID),
		Name:                t.Name,
		Description:         t.Description,
		IsGlobal:            t.IsGlobal,
		PortfolioID:         toNullUUID(t.PortfolioID),
		InvestmentID:        toNullUUID(t.InvestmentID),
		InvestmentType:      string(t.InvestmentType),
		AmountPerInvestment: t.AmountPerInvestment,
		Frequency:           string(t.Frequency),
		IntervalValue:       t.IntervalValue,
		StartDate:           t.StartDate,
		EndDate:             toNullTime(t.EndDate),
		NextExecution:       t.NextExecution,
		TotalExecuted:       t.TotalExecuted,
		TotalInvested:       t.TotalInvested,
		UsageCount:          t.UsageCount,
		AutoExecute:         t.AutoExecute,
		Status:              string(t.Status),
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func ConvertCoupon(c dbModel.Coupon) model.Coupon {
	return model.Coupon{
		ID:                c.ID,
		Code:              c.Code,
		Description:       c.Description,
		DiscountType:      model.DiscountType(c.DiscountType),
		Value:             c.Value,
		MaxUses:           nullIntPtr(c.MaxUses),
		MaxUsesPerUser:    nullIntPtr(c.MaxUsesPerUser),
		UsedCount:         c.UsedCount,
		ExpiresAt:         nullTimePtr(c.ExpiresAt),
		MinOrderAmount:    nullDecimalPtr(c.MinOrderAmount),
		MaxDiscountAmount: nullDecimalPtr(c.MaxDiscountAmount),
		IsActive:          c.IsActive,
		CreatedAt:         c.CreatedAt,
	}
}

func ToDbCoupon(c model.Coupon) dbModel.Coupon {
	return dbModel.Coupon{
		ID:                c.ID,
		Code:              c.Code,
		Description:       c.Description,
		DiscountType:      string(c.DiscountType),
		Value:             c.Value,
		MaxUses:           toNullInt32(c.MaxUses),
		MaxUsesPerUser:    toNullInt32(c.MaxUsesPerUser),
		UsedCount:         c.UsedCount,
		ExpiresAt:         toNullTime(c.ExpiresAt),
		MinOrderAmount:    toNullDecimal(c.MinOrderAmount),
		MaxDiscountAmount: toNullDecimal(c.MaxDiscountAmount),
		IsActive:          c.IsActive,
		CreatedAt:         c.CreatedAt,
	}
}

func ConvertPayment(p dbModel.Payment) model.Payment {
	return model.Payment{
		ID:              p.ID,
		UserID:          p.UserID,
		PlanID:          p.PlanID,
		PaymentMethod:   model.PaymentMethod(p.PaymentMethod),
		CouponID:        nullUUIDPtr(p.CouponID),
		CouponCode:      p.CouponCode,
		BaseAmount:      p.BaseAmount,
		DiscountAmount:  p.DiscountAmount,
		FinalAmount:     p.FinalAmount,
		Currency:        p.Currency,
		Status:          model.PaymentStatus(p.Status),
		Reference:       p.Reference,
		AdminNotes:      p.AdminNotes,
		RejectionReason: p.RejectionReason,
		SubmittedAt:     nullTimePtr(p.SubmittedAt),
		VerifiedAt:      nullTimePtr(p.VerifiedAt),
		ApprovedAt:      nullTimePtr(p.ApprovedAt),
		RejectedAt:      nullTimePtr(p.RejectedAt),
		ExpiredAt:       nullTimePtr(p.ExpiredAt),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func ToDbPayment(p model.Payment) dbModel.Payment {
	return dbModel.Payment{
		ID:              p.ID,
		UserID:          p.UserID,
		PlanID:          p.PlanID,
		PaymentMethod:   string(p.PaymentMethod),
		CouponID:        toNullUUID(p.CouponID),
		CouponCode:      p.CouponCode,
		BaseAmount:      p.BaseAmount,
		DiscountAmount:  p.DiscountAmount,
		FinalAmount:     p.FinalAmount,
		Currency:        p.Currency,
		Status:          string(p.Status),
		Reference:       p.Reference,
		AdminNotes:      p.AdminNotes,
		RejectionReason: p.RejectionReason,
		SubmittedAt:     toNullTime(p.SubmittedAt),
		VerifiedAt:      toNullTime(p.VerifiedAt),
		ApprovedAt:      toNullTime(p.ApprovedAt),
		RejectedAt:      toNullTime(p.RejectedAt),
		ExpiredAt:       toNullTime(p.ExpiredAt),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func ConvertSubscriptionPlan(p dbModel.SubscriptionPlan) model.SubscriptionPlan {
	return model.SubscriptionPlan{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		IsActive:     p.IsActive,
	}
}

func ConvertSubscription(s dbModel.Subscription) model.Subscription {
	return model.Subscription{
		UserID:    s.UserID,
		PlanID:    s.PlanID,
		StartsAt:  s.StartsAt,
		ExpiresAt: s.ExpiresAt,
	}
}

func nullUUIDPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTimePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func nullDatePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := model.DateOf(n.Time)
	return &t
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullIntPtr(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func toNullInt32(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullDecimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
