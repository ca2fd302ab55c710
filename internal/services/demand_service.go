package services

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/money"
)

// maxDrawsPerTick bounds the purchase loop even when the budget dwarfs the
// marketplace.
const maxDrawsPerTick = 500

// demandService is the bot marketplace: each tick it spends a fixed budget
// across active, in-stock products, weighted by value for money, quality,
// and company reputation. Bot cash is minted, so player wealth is never
// consumed by simulated demand.
type demandService struct {
	db     *gorm.DB
	ledger LedgerServicer
}

// NewDemandService creates a new DemandServicer.
func NewDemandService(db *gorm.DB, ledger LedgerServicer) DemandServicer {
	return &demandService{db: db, ledger: ledger}
}

// candidate is one product eligible for bot purchases this tick, with its
// sampling weight and the company account to credit.
type candidate struct {
	product   models.Product
	accountID string
	weight    float64
	bought    int64
	spent     int64
}

// RunTick allocates the budget across the marketplace. Draws are weighted
// sampling without exhaustion: a product stays in the pool until its stock
// or the budget can no longer cover it. Deterministic given the random
// source and the product set.
func (s *demandService) RunTick(r *rand.Rand, budget int64) (*DemandResult, error) {
	result := &DemandResult{Purchases: []BotPurchase{}}
	if budget <= 0 {
		return result, nil
	}

	var products []models.Product
	if err := s.db.Preload("Company").
		Where("is_active = ? AND stock > 0 AND price > 0", true).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(products) == 0 {
		return result, nil
	}

	pool := make([]*candidate, 0, len(products))
	for i := range products {
		p := products[i]
		pool = append(pool, &candidate{
			product:   p,
			accountID: p.Company.AccountID,
			weight:    demandWeight(&p),
		})
	}

	remaining := budget
	for draws := 0; draws < maxDrawsPerTick && remaining > 0; draws++ {
		pool = trimPool(pool, remaining)
		if len(pool) == 0 {
			break
		}

		c := pickWeighted(r, pool)

		// Bots buy in small lots so the budget spreads across the market.
		maxAffordable := remaining / c.product.Price
		maxLot := min64(3, min64(c.product.Stock-c.bought, maxAffordable))
		lot := 1 + r.Int63n(maxLot)

		total, err := money.Mul(c.product.Price, lot)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrOverflowDetected, err)
		}

		c.bought += lot
		c.spent += total
		remaining -= total
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, c := range pool {
			if c.bought == 0 {
				continue
			}
			if txErr := s.commitPurchase(tx, c); txErr != nil {
				return txErr
			}
			result.Purchases = append(result.Purchases, BotPurchase{
				ProductID: c.product.ID,
				CompanyID: c.product.CompanyID,
				Quantity:  c.bought,
				Total:     c.spent,
			})
			result.TotalSpent += c.spent
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// commitPurchase applies one product's aggregated bot purchases: stock and
// sales counters move, the company is credited with minted cash, and a Sale
// row lands with a nil buyer.
func (s *demandService) commitPurchase(tx *gorm.DB, c *candidate) error {
	newRevenue, err := money.Add(c.product.TotalRevenue, c.spent)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}

	updates := map[string]any{
		"stock":         c.product.Stock - c.bought,
		"total_sold":    c.product.TotalSold + c.bought,
		"total_revenue": newRevenue,
		"recent_sales":  c.product.RecentSales + c.bought,
	}
	if err := tx.Model(&c.product).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if _, err := s.ledger.MintTx(tx, c.accountID, c.spent, models.EntryKindProduct,
		fmt.Sprintf("Market demand: %s x%d", c.product.Name, c.bought)); err != nil {
		return err
	}

	sale := &models.Sale{
		ProductID: c.product.ID,
		CompanyID: c.product.CompanyID,
		Quantity:  c.bought,
		UnitPrice: c.product.Price,
		Total:     c.spent,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(sale).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// demandWeight scores a product for sampling. Quality and reputation scale
// appeal linearly; price dampens it sublinearly so cheap goods dominate
// volume without starving premium products entirely.
func demandWeight(p *models.Product) float64 {
	quality := float64(p.Quality)
	if quality < 1 {
		quality = 1
	}
	reputation := p.Company.Reputation
	if reputation < 0 {
		reputation = 0
	}
	return quality * (1 + reputation) / math.Sqrt(float64(p.Price))
}

// trimPool drops candidates that are sold out or priced above the remaining
// budget.
func trimPool(pool []*candidate, remaining int64) []*candidate {
	kept := pool[:0]
	for _, c := range pool {
		if c.bought < c.product.Stock && c.product.Price <= remaining {
			kept = append(kept, c)
		}
	}
	return kept
}

// pickWeighted draws one candidate proportionally to weight. The pool is
// never empty here.
func pickWeighted(r *rand.Rand, pool []*candidate) *candidate {
	var totalWeight float64
	for _, c := range pool {
		totalWeight += c.weight
	}
	target := r.Float64() * totalWeight
	for _, c := range pool {
		target -= c.weight
		if target <= 0 {
			return c
		}
	}
	return pool[len(pool)-1]
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
