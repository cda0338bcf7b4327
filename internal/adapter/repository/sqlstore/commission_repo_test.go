package sqlstore

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommissionRuleRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommissionRuleRepository(db)
	ctx := context.Background()

	minAmount := decimal.NewFromInt(100)
	rule := &domain.BankCommission{
		BankName:       "Сбербанк",
		Category:       "Переводы",
		CommissionType: domain.CommissionTypeCombined,
		PercentValue:   decimal.RequireFromString("1.5"),
		FixedValue:     decimal.NewFromInt(30),
		FixedCurrency:  "RUB",
		MinAmount:      &minAmount,
		Description:    "Переводы в другие банки",
		Advice:         "Используйте СБП",
		Priority:       5,
	}
	require.NoError(t, repo.Create(ctx, rule))
	assert.NotZero(t, rule.ID)

	got, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Сбербанк", got.BankName)
	assert.Equal(t, domain.CommissionTypeCombined, got.CommissionType)
	assert.True(t, decimal.RequireFromString("1.5").Equal(got.PercentValue))
	assert.True(t, decimal.NewFromInt(30).Equal(got.FixedValue))
	require.NotNil(t, got.MinAmount)
	assert.True(t, minAmount.Equal(*got.MinAmount))
	assert.Nil(t, got.MaxAmount)
	assert.Equal(t, 5, got.Priority)

	got.Priority = 9
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, reloaded.Priority)

	require.NoError(t, repo.Delete(ctx, rule.ID))
	_, err = repo.GetByID(ctx, rule.ID)
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, rule.ID), domain.ErrRuleNotFound)
	assert.ErrorIs(t, repo.Update(ctx, got), domain.ErrRuleNotFound)
}

func TestCommissionRuleRepository_ListByBank(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommissionRuleRepository(db)
	ctx := context.Background()

	for _, bank := range []string{"Сбербанк", "Тинькофф", "СБЕРБАНК "} {
		require.NoError(t, repo.Create(ctx, &domain.BankCommission{
			BankName:       bank,
			Category:       "Переводы",
			CommissionType: domain.CommissionTypePercent,
			PercentValue:   decimal.NewFromInt(1),
		}))
	}

	rules, err := repo.ListByBank(ctx, "сбербанк")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Less(t, rules[0].ID, rules[1].ID)

	all, err := repo.ListByBank(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.ListByBank(ctx, "Альфа")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCommissionRuleRepository_KeepsUnknownType(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommissionRuleRepository(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO bank_commissions (bank_name, bank_key, category, commission_type)
		VALUES ('Legacy', 'legacy', 'Other', 'tiered')`)
	require.NoError(t, err)

	rules, err := repo.ListByBank(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, domain.CommissionType("tiered"), rules[0].CommissionType)
	assert.True(t, rules[0].PercentValue.IsZero())
}

func TestCommissionTipRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommissionTipRepository(db)
	ctx := context.Background()

	general := domain.GeneralTipCategory
	transfers := "Переводы"
	sber := "Сбербанк"

	tips := []*domain.CommissionTip{
		{Title: "Everywhere", Content: "Compare banks"},
		{Title: "General", Content: "Check limits", Category: &general},
		{Title: "Sber transfers", Content: "Use SBP", Category: &transfers, BankName: &sber},
		{Title: "Any transfer", Content: "Batch payments", Category: &transfers},
	}
	for _, tip := range tips {
		require.NoError(t, repo.Create(ctx, tip))
	}

	all, err := repo.List(ctx, domain.TipFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	scoped, err := repo.List(ctx, domain.TipFilter{BankName: "сбербанк", Category: "ПЕРЕВОДЫ"})
	require.NoError(t, err)
	require.Len(t, scoped, 3)
	assert.Equal(t, "Everywhere", scoped[0].Title)
	assert.Equal(t, "Sber transfers", scoped[1].Title)
	assert.Equal(t, "Any transfer", scoped[2].Title)

	otherBank, err := repo.List(ctx, domain.TipFilter{BankName: "Тинькофф"})
	require.NoError(t, err)
	assert.Len(t, otherBank, 3)

	byCategory, err := repo.ListByCategory(ctx, "General")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Check limits", byCategory[0].Content)
	require.NotNil(t, byCategory[0].Category)
	assert.Nil(t, byCategory[0].BankName)
}

func TestCommissionTipRepository_UpdateDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommissionTipRepository(db)
	ctx := context.Background()

	tip := &domain.CommissionTip{Title: "Old", Content: "Old content", Priority: 1}
	require.NoError(t, repo.Create(ctx, tip))

	tip.Title = "New"
	tip.Priority = 3
	require.NoError(t, repo.Update(ctx, tip))

	got, err := repo.GetByID(ctx, tip.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, 3, got.Priority)

	require.NoError(t, repo.Delete(ctx, tip.ID))
	_, err = repo.GetByID(ctx, tip.ID)
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)
}

func TestEntityDirectory(t *testing.T) {
	db := newTestDB(t)
	dir := NewEntityDirectory(db)
	ctx := context.Background()

	userID := seedUser(t, db, "Мария")
	contactID := seedContact(t, db, "@maria")
	projectID := seedProject(t, db, "Витрина")

	ok, err := dir.UserExists(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.ContactExists(ctx, contactID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dir.ProjectExists(ctx, projectID)
	require.NoError(t, err)
	assert.True(t, ok)

	name, found, err := dir.UserName(ctx, userID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Мария", name)

	handle, found, err := dir.ContactHandle(ctx, contactID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "@maria", handle)

	_, found, err = dir.ProjectName(ctx, projectID+100)
	require.NoError(t, err)
	assert.False(t, found)
}
