package config

import (
	"fmt"
	"newton/models"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// PlanCatalog maps Whop plans and products to tiers, and tiers to limits.
type PlanCatalog struct {
	// Plans maps a paid tier to the Whop plan id sold for it.
	Plans    map[models.Tier]string        `koanf:"plans"`
	// Products maps extra Whop product ids to tiers.
	Products map[string]models.Tier        `koanf:"products"`
	Limits   map[models.Tier]models.Limits `koanf:"limits" validate:"required,dive"`
}

// DefaultPlanCatalog returns the built-in limits with no Whop ids configured.
func DefaultPlanCatalog() *PlanCatalog {
	paid := models.Limits{
		NotesPerMonth:        models.Unlimited,
		MaxUploadMB:          100,
		FlashcardsPerNote:    30,
		QuizQuestions:        15,
		MaxRoomParticipants:  25,
		GenerationsPerMinute: 20,
		AudioUploads:         true,
		YouTubeImports:       true,
	}
	return &PlanCatalog{
		Plans:    map[models.Tier]string{},
		Products: map[string]models.Tier{},
		Limits: map[models.Tier]models.Limits{
			models.TierFree: {
				NotesPerMonth:        3,
				MaxUploadMB:          10,
				FlashcardsPerNote:    10,
				QuizQuestions:        5,
				MaxRoomParticipants:  4,
				GenerationsPerMinute: 3,
				AudioUploads:         false,
				YouTubeImports:       true,
			},
			models.TierMonthly:  paid,
			models.TierYearly:   paid,
			models.TierLifetime: paid,
		},
	}
}

// LoadPlanCatalog overlays the YAML file at path (optional) and NEWTON_PLANS_* /
// NEWTON_LIMITS_* / NEWTON_PRODUCTS_* environment variables on the defaults.
// Limits merge field by field, so an override only changes the fields it names.
func LoadPlanCatalog(path string) (*PlanCatalog, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load plans file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("NEWTON_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load plan env overrides: %w", err)
	}

	catalog := DefaultPlanCatalog()
	if err := k.Unmarshal("plans", &catalog.Plans); err != nil {
		return nil, fmt.Errorf("failed to decode plans: %w", err)
	}
	if err := k.Unmarshal("products", &catalog.Products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	for _, name := range k.MapKeys("limits") {
		tier := models.Tier(name)
		limits := catalog.Limits[tier]
		if err := k.Unmarshal("limits."+name, &limits); err != nil {
			return nil, fmt.Errorf("failed to decode limits for %q: %w", name, err)
		}
		catalog.Limits[tier] = limits
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// envKey maps NEWTON_PLANS_MONTHLY to plans.monthly and
// NEWTON_LIMITS_FREE_NOTES_PER_MONTH to limits.free.notes_per_month. Product
// ids keep their case: NEWTON_PRODUCTS_prod_AbC123 is products.prod_AbC123.
func envKey(name string) string {
	key := strings.TrimPrefix(name, "NEWTON_")
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return strings.ToLower(key)
	}
	section = strings.ToLower(section)
	if section == "products" {
		return section + "." + rest
	}
	return section + "." + strings.Join(strings.SplitN(strings.ToLower(rest), "_", 2), ".")
}

func (pc *PlanCatalog) Validate() error {
	if err := validator.New().Struct(pc); err != nil {
		return fmt.Errorf("invalid plan catalog: %w", err)
	}
	if _, ok := pc.Limits[models.TierFree]; !ok {
		return fmt.Errorf("invalid plan catalog: limits for %q are required", models.TierFree)
	}
	for tier := range pc.Plans {
		if !tier.Paid() {
			return fmt.Errorf("invalid plan catalog: %q is not a paid tier", tier)
		}
	}
	for product, tier := range pc.Products {
		if !tier.Paid() {
			return fmt.Errorf("invalid plan catalog: product %s maps to unpaid tier %q", product, tier)
		}
	}
	return nil
}

// TierFor resolves the tier of a Whop plan id, falling back to a product id.
func (pc *PlanCatalog) TierFor(planID, productID string) (models.Tier, bool) {
	for tier, id := range pc.Plans {
		if planID != "" && id == planID {
			return tier, true
		}
	}
	if tier, ok := pc.Products[planID]; ok && planID != "" {
		return tier, true
	}
	if tier, ok := pc.Products[productID]; ok && productID != "" {
		return tier, true
	}
	return "", false
}

// PlanID returns the Whop plan id configured for a paid tier.
func (pc *PlanCatalog) PlanID(tier models.Tier) (string, bool) {
	id, ok := pc.Plans[tier]
	return id, ok && id != ""
}

// LimitsFor returns the limits of a tier, defaulting to free.
func (pc *PlanCatalog) LimitsFor(tier models.Tier) models.Limits {
	if limits, ok := pc.Limits[tier]; ok {
		return limits
	}
	return pc.Limits[models.TierFree]
}
