package model

// PlanType identifies a subscription tier for an instructor.
type PlanType string

const (
	PlanTrial     PlanType = "trial"
	PlanEssencial PlanType = "essencial"
	PlanDestaque  PlanType = "destaque"
	PlanElite     PlanType = "elite"
	PlanExpired   PlanType = "expired"
)

// Paid reports whether the plan is one of the purchasable tiers.
func (p PlanType) Paid() bool {
	switch p {
	case PlanEssencial, PlanDestaque, PlanElite:
		return true
	}
	return false
}

// ParsePaidPlan validates a client-supplied plan name against the paid tiers.
func ParsePaidPlan(s string) (PlanType, bool) {
	p := PlanType(s)
	return p, p.Paid()
}

// PriceTable maps payment-provider price identifiers to plan tiers. The
// mapping is used in the forward direction only (price -> plan); an
// unrecognized price resolves to the lowest paid tier rather than failing.
type PriceTable struct {
	byPrice map[string]PlanType
	byPlan  map[PlanType]string
}

func NewPriceTable(essencial, destaque, elite string) *PriceTable {
	return &PriceTable{
		byPrice: map[string]PlanType{
			essencial: PlanEssencial,
			destaque:  PlanDestaque,
			elite:     PlanElite,
		},
		byPlan: map[PlanType]string{
			PlanEssencial: essencial,
			PlanDestaque:  destaque,
			PlanElite:     elite,
		},
	}
}

// PlanFor resolves a provider price id to a plan tier, defaulting to
// essencial when the price is not in the table.
func (t *PriceTable) PlanFor(priceID string) PlanType {
	if p, ok := t.byPrice[priceID]; ok {
		return p
	}
	return PlanEssencial
}

// PriceFor returns the provider price id configured for a paid tier.
func (t *PriceTable) PriceFor(plan PlanType) (string, bool) {
	id, ok := t.byPlan[plan]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
