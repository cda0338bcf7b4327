package seeder

import (
	"context"
	"fmt"
	"strings"

	"github.com/simaogato/fundledger/internal/domain"
)

// DefaultTips are the "general" tips every installation starts with
var DefaultTips = []domain.CommissionTip{
	{
		Title:    "Compare banks before sending",
		Content:  "Transfer fees differ a lot between banks; check the rules table for the cheapest route.",
		Priority: 3,
	},
	{
		Title:    "Batch small transfers",
		Content:  "Fixed fees are charged per transfer, so one larger payment usually costs less than several small ones.",
		Priority: 2,
	},
	{
		Title:    "Watch exchange spreads",
		Content:  "Currency exchange inside a transfer often hides a spread on top of the stated commission.",
		Priority: 1,
	},
}

// SystemSeeder handles seeding of the default commission tips
type SystemSeeder struct {
	repo domain.CommissionTipRepository
}

// NewSystemSeeder creates a new SystemSeeder instance
func NewSystemSeeder(repo domain.CommissionTipRepository) *SystemSeeder {
	return &SystemSeeder{
		repo: repo,
	}
}

// Seed ensures every default tip exists in the "general" category.
// Tips are matched by title (case-insensitive); existing ones are left untouched.
func (s *SystemSeeder) Seed(ctx context.Context) error {
	existing, err := s.repo.ListByCategory(ctx, domain.GeneralTipCategory)
	if err != nil {
		return fmt.Errorf("failed to list general tips: %w", err)
	}

	titles := make(map[string]bool, len(existing))
	for _, tip := range existing {
		titles[strings.ToLower(strings.TrimSpace(tip.Title))] = true
	}

	for _, def := range DefaultTips {
		if titles[strings.ToLower(def.Title)] {
			continue
		}

		category := domain.GeneralTipCategory
		tip := def
		tip.Category = &category

		// Validate before creating
		if err := tip.Validate(); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, &tip); err != nil {
			return fmt.Errorf("failed to seed tip %q: %w", tip.Title, err)
		}
	}

	return nil
}
