package pricing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfmart/shelfmart/internal/catalog"
)

// RuleRepository loads pricing rules from storage.
type RuleRepository interface {
	ListActive(ctx context.Context, at time.Time) ([]Rule, error)
}

type ruleRepository struct {
	pool     *pgxpool.Pool
	validate *validator.Validate
}

// NewRuleRepository constructs a RuleRepository backed by PostgreSQL.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool, validate: validator.New()}
}

// ListActive returns active rules within their validity window, ordered by
// priority descending with creation order as the tie-break so recomputation
// stays deterministic. Rules whose JSON payloads fail to decode or validate
// are dropped here, which under-applies rules rather than failing a batch.
func (r *ruleRepository) ListActive(ctx context.Context, at time.Time) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, rule_name, category_id, COALESCE(conditions, '{}'::jsonb), price_adjustment, priority, is_active, valid_from, valid_until, created_at, updated_at
FROM pricing_rules
WHERE is_active = TRUE
  AND (valid_from IS NULL OR valid_from <= $1)
  AND (valid_until IS NULL OR valid_until >= $1)
ORDER BY priority DESC, created_at ASC, id ASC`, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var (
			rule       Rule
			categoryID pgtype.Text
			conditions []byte
			adjustment []byte
			validFrom  pgtype.Timestamptz
			validUntil pgtype.Timestamptz
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &categoryID, &conditions, &adjustment, &rule.Priority, &rule.IsActive, &validFrom, &validUntil, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		if categoryID.Valid && categoryID.String != "" {
			value := categoryID.String
			rule.CategoryID = &value
		}
		if validFrom.Valid {
			value := validFrom.Time
			rule.ValidFrom = &value
		}
		if validUntil.Valid {
			value := validUntil.Time
			rule.ValidUntil = &value
		}
		if !r.decodePayloads(&rule, conditions, adjustment) {
			continue
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) decodePayloads(rule *Rule, conditions, adjustment []byte) bool {
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return false
		}
		if err := r.validate.Struct(rule.Conditions); err != nil {
			return false
		}
	}
	if err := json.Unmarshal(adjustment, &rule.Adjustment); err != nil {
		return false
	}
	if err := r.validate.Struct(rule.Adjustment); err != nil {
		return false
	}
	return true
}

// Store selects the rules applicable to a product.
type Store struct {
	rules RuleRepository
	now   func() time.Time
}

// NewStore constructs a Store.
func NewStore(rules RuleRepository) *Store {
	return &Store{rules: rules, now: time.Now}
}

// Applicable returns the active rules matching the product, in evaluation
// order. An empty result means no rule-based adjustment, not an error. The
// validity window is re-checked here: the repository filter is a fast path,
// not something every RuleRepository is trusted to enforce.
func (s *Store) Applicable(ctx context.Context, product catalog.Product) ([]Rule, error) {
	now := s.now().UTC()
	all, err := s.rules.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}
	applicable := make([]Rule, 0, len(all))
	for _, rule := range all {
		if !rule.ActiveAt(now) {
			continue
		}
		if rule.Applies(product) {
			applicable = append(applicable, rule)
		}
	}
	return applicable, nil
}
