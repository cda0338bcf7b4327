package commission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
)

const (
	// DefaultCacheSize is the number of banks whose rules are kept in memory
	DefaultCacheSize = 128
	adviceTipLimit   = 3
)

// Service answers commission questions and manages the rule and tip tables
type Service struct {
	Rules  domain.CommissionRuleRepository
	Tips   domain.CommissionTipRepository
	Logger zerolog.Logger
	cache  *lru.Cache[string, []*domain.BankCommission]
}

// NewService creates a new commission Service instance.
// Rules are cached per bank; every rule write empties the cache.
func NewService(
	rules domain.CommissionRuleRepository,
	tips domain.CommissionTipRepository,
	logger zerolog.Logger,
	cacheSize int,
) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []*domain.BankCommission](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule cache: %w", err)
	}

	return &Service{
		Rules:  rules,
		Tips:   tips,
		Logger: logger.With().Str("component", "commission").Logger(),
		cache:  cache,
	}, nil
}

// CalculateCommission returns the commission charged by bank for amount in category.
// No matching rule yields zero. A rule with an unknown type also yields zero and is logged.
func (s *Service) CalculateCommission(ctx context.Context, bank, category string, amount decimal.Decimal) (decimal.Decimal, error) {
	rules, err := s.rulesForBank(ctx, bank)
	if err != nil {
		return decimal.Zero, err
	}

	result, rule, err := Calculate(rules, bank, category, amount)
	if errors.Is(err, domain.ErrInvalidRule) {
		s.Logger.Warn().Err(err).Int64("rule_id", rule.ID).Str("bank", bank).Msg("commission rule ignored")
		return decimal.Zero, nil
	}
	return result, err
}

// GetAdviceForTransaction renders up to three tips for the transaction followed by the commission.
// Logic:
//  1. Pool 1: tips scoped to the bank or agnostic of it, whatever their category
//  2. Pool 2: tips in the "general" category
//  3. Merge (pool 1 first, duplicates dropped), sort by priority keeping source order on ties, take 3
//  4. Append the commission when it is not zero
func (s *Service) GetAdviceForTransaction(ctx context.Context, bank, category string, amount decimal.Decimal) (string, error) {
	scoped, err := s.Tips.List(ctx, domain.TipFilter{BankName: bank})
	if err != nil {
		return "", fmt.Errorf("failed to list scoped tips: %w", err)
	}
	general, err := s.Tips.ListByCategory(ctx, domain.GeneralTipCategory)
	if err != nil {
		return "", fmt.Errorf("failed to list general tips: %w", err)
	}

	tips := TopTips(scoped, general, adviceTipLimit)

	commission, err := s.CalculateCommission(ctx, bank, category, amount)
	if err != nil {
		return "", err
	}

	return RenderAdvice(tips, commission), nil
}

// TopTips merges the pools in order, drops duplicates and returns the limit highest priority tips
func TopTips(scoped, general []*domain.CommissionTip, limit int) []*domain.CommissionTip {
	seen := make(map[int64]bool, len(scoped)+len(general))
	merged := make([]*domain.CommissionTip, 0, len(scoped)+len(general))
	for _, pool := range [][]*domain.CommissionTip{scoped, general} {
		for _, tip := range pool {
			if seen[tip.ID] {
				continue
			}
			seen[tip.ID] = true
			merged = append(merged, tip)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Priority > merged[j].Priority
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// RenderAdvice formats tips and a commission as a text block
func RenderAdvice(tips []*domain.CommissionTip, commission decimal.Decimal) string {
	var b strings.Builder

	if len(tips) > 0 {
		b.WriteString("Tips:\n")
		for i, tip := range tips {
			fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, tip.Title, tip.Content)
		}
	}

	if !commission.IsZero() {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Estimated commission: %s\n", commission.StringFixed(2))
	}

	return b.String()
}

// CreateRule validates and stores a commission rule
func (s *Service) CreateRule(ctx context.Context, rule *domain.BankCommission) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRule, err)
	}
	if err := s.Rules.Create(ctx, rule); err != nil {
		return err
	}
	s.cache.Purge()
	return nil
}

// GetRule returns a commission rule by id
func (s *Service) GetRule(ctx context.Context, id int64) (*domain.BankCommission, error) {
	return s.Rules.GetByID(ctx, id)
}

// UpdateRule validates and overwrites a commission rule
func (s *Service) UpdateRule(ctx context.Context, rule *domain.BankCommission) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRule, err)
	}
	if err := s.Rules.Update(ctx, rule); err != nil {
		return err
	}
	s.cache.Purge()
	return nil
}

// DeleteRule removes a commission rule
func (s *Service) DeleteRule(ctx context.Context, id int64) error {
	if err := s.Rules.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Purge()
	return nil
}

// ListRules lists the rules of bank, or every rule when bank is empty
func (s *Service) ListRules(ctx context.Context, bank string) ([]*domain.BankCommission, error) {
	return s.Rules.ListByBank(ctx, bank)
}

// CreateTip validates and stores a tip
func (s *Service) CreateTip(ctx context.Context, tip *domain.CommissionTip) error {
	if err := tip.Validate(); err != nil {
		return fmt.Errorf("invalid commission tip: %w", err)
	}
	return s.Tips.Create(ctx, tip)
}

// GetTip returns a tip by id
func (s *Service) GetTip(ctx context.Context, id int64) (*domain.CommissionTip, error) {
	return s.Tips.GetByID(ctx, id)
}

// UpdateTip validates and overwrites a tip
func (s *Service) UpdateTip(ctx context.Context, tip *domain.CommissionTip) error {
	if err := tip.Validate(); err != nil {
		return fmt.Errorf("invalid commission tip: %w", err)
	}
	return s.Tips.Update(ctx, tip)
}

// DeleteTip removes a tip
func (s *Service) DeleteTip(ctx context.Context, id int64) error {
	return s.Tips.Delete(ctx, id)
}

// ListTips lists tips matching filter
func (s *Service) ListTips(ctx context.Context, filter domain.TipFilter) ([]*domain.CommissionTip, error) {
	return s.Tips.List(ctx, filter)
}

func (s *Service) rulesForBank(ctx context.Context, bank string) ([]*domain.BankCommission, error) {
	key := strings.ToLower(strings.TrimSpace(bank))
	if rules, ok := s.cache.Get(key); ok {
		return rules, nil
	}

	rules, err := s.Rules.ListByBank(ctx, bank)
	if err != nil {
		return nil, fmt.Errorf("failed to load commission rules: %w", err)
	}
	s.cache.Add(key, rules)
	return rules, nil
}
