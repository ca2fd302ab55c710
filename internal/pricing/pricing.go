// Package pricing implements the stochastic price models for stocks and
// cryptocurrencies, plus the liquidity-based impact applied to user trades.
//
// Every function is pure given the injected *rand.Rand, so a seeded source
// reproduces an entire price path exactly.
package pricing

import (
	"math"
	"math/rand"
)

// Tuning constants shared by both models. Rates are per tick unless noted.
const (
	// MinPrice keeps every asset strictly positive.
	MinPrice int64 = 1

	// MaxMovePerTick caps a single tick's percentage change in either
	// direction so one draw cannot vaporize or moon an asset.
	MaxMovePerTick = 0.35

	momentumFactor = 0.2  // carry-over of the prior tick's pct change
	volPersistence = 0.85 // EWMA weight on prior volatility (clustering)
	volShockScale  = 0.15 // weight on the new |shock| blended into volatility

	minVolatility = 0.002
	maxVolatility = 0.25
)

// Stock model constants.
const (
	stockReversionStrength = 0.08  // pull toward the anchor fair value
	refVolatility          = 0.02  // reversion strength is scaled by vol/refVolatility
	anchorNoiseScale       = 0.004 // anchor wanders a little each tick
	sentimentDriftScale    = 0.01
	flaggedSentiment       = -0.75 // flagged companies trade under a cloud
)

// Crypto model constants.
const (
	driftPersistence = 0.92   // trend drift mean-reverts toward zero
	driftShockScale  = 0.0035 // random walk component of the drift
	regimeFlipProb   = 0.02   // chance per tick the trend flips sign
)

// StockState is the pricing-relevant state of one stock.
type StockState struct {
	Price         int64
	AnchorPrice   int64
	GrowthRate    float64 // fundamental growth per day
	Volatility    float64
	Sentiment     float64 // -1..1
	LastChangePct float64
	Flagged       bool
}

// StockResult is the post-tick state. ChangePct is the applied fractional
// price change after clamping.
type StockResult struct {
	Price       int64
	AnchorPrice int64
	Volatility  float64
	ChangePct   float64
}

// NextStockPrice advances one stock by one tick.
//
// The return combines mean reversion toward a fundamentals-implied anchor,
// momentum carry from the prior tick, and volatility-clustered noise. The
// anchor itself drifts with company growth so healthy companies trend up
// over many ticks.
func NextStockPrice(r *rand.Rand, ticksPerDay int, s StockState) StockResult {
	if ticksPerDay <= 0 {
		ticksPerDay = 1
	}

	vol := nextVolatility(r, s.Volatility)

	sentiment := s.Sentiment
	if s.Flagged {
		sentiment = flaggedSentiment
	}

	growthPerTick := s.GrowthRate / float64(ticksPerDay)
	anchorRet := growthPerTick + anchorNoiseScale*r.NormFloat64()
	anchor := applyReturn(s.AnchorPrice, clamp(anchorRet, MaxMovePerTick))

	// More volatile names snap back to fair value harder, calmer ones drift.
	drift := stockReversionStrength*(vol/refVolatility)*reversionGap(s.Price, anchor) +
		sentimentDriftScale*sentiment
	momentum := momentumFactor * s.LastChangePct
	noise := vol * r.NormFloat64()

	change := clamp(drift+momentum+noise, MaxMovePerTick)
	price := applyReturn(s.Price, change)

	return StockResult{
		Price:       price,
		AnchorPrice: anchor,
		Volatility:  vol,
		ChangePct:   change,
	}
}

// CryptoState is the pricing-relevant state of one cryptocurrency.
type CryptoState struct {
	Price           int64
	BaseVolatility  float64
	Volatility      float64
	TrendDrift      float64
	LastPriceChange float64
}

// CryptoResult is the post-tick state.
type CryptoResult struct {
	Price      int64
	Volatility float64
	TrendDrift float64
	ChangePct  float64
}

// NextCryptoPrice advances one cryptocurrency by one tick.
//
// The trend drift is a mean-reverting random walk that occasionally flips
// sign, simulating regime shifts between sustained rallies and drawdowns.
// Noise is volatility-clustered like the stock model. Trade volume plays no
// part here; user trades move the price separately through Impact.
func NextCryptoPrice(r *rand.Rand, c CryptoState) CryptoResult {
	vol := nextVolatility(r, blendBase(c.Volatility, c.BaseVolatility))

	drift := driftPersistence*c.TrendDrift + driftShockScale*r.NormFloat64()
	if r.Float64() < regimeFlipProb {
		drift = -drift
	}

	momentum := momentumFactor * c.LastPriceChange
	noise := vol * r.NormFloat64()

	change := clamp(drift+momentum+noise, MaxMovePerTick)
	price := applyReturn(c.Price, change)

	return CryptoResult{
		Price:      price,
		Volatility: vol,
		TrendDrift: drift,
		ChangePct:  change,
	}
}

// MaxImpact bounds how far a single trade can move a crypto's stored price.
const MaxImpact = 0.20

// ImpactResult describes how one user trade moves a crypto price.
type ImpactResult struct {
	// EffectivePrice is the per-unit execution price, averaging the walk
	// from the pre-trade to the post-trade price.
	EffectivePrice int64
	// NewPrice is the stored price after the trade.
	NewPrice int64
}

// Impact computes the liquidity-based price impact of a user trade.
// The shift is quantity/liquidity squashed to an asymptote, so impact grows
// with size but a single trade can never move the price more than MaxImpact.
// Buys push the price up, sells push it down.
func Impact(price int64, quantity, liquidity float64, buy bool) ImpactResult {
	if price < MinPrice {
		price = MinPrice
	}
	if liquidity <= 0 || quantity <= 0 {
		return ImpactResult{EffectivePrice: price, NewPrice: price}
	}

	ratio := quantity / liquidity
	shift := MaxImpact * ratio / (1 + ratio)
	if !buy {
		shift = -shift
	}

	newPrice := floorPrice(int64(math.Floor(float64(price) * (1 + shift))))
	// Execution averages the pre- and post-impact price.
	effective := floorPrice(int64(math.Floor(float64(price) * (1 + shift/2))))

	return ImpactResult{EffectivePrice: effective, NewPrice: newPrice}
}

// nextVolatility blends the prior volatility with a fresh absolute shock,
// producing clustered (not i.i.d.) volatility, clamped to sane bounds.
func nextVolatility(r *rand.Rand, prior float64) float64 {
	vol := volPersistence*prior + volShockScale*math.Abs(r.NormFloat64())*prior
	if vol < minVolatility {
		vol = minVolatility
	}
	if vol > maxVolatility {
		vol = maxVolatility
	}
	return vol
}

// blendBase nudges the current volatility back toward the asset's base level
// so shocks decay instead of compounding forever.
func blendBase(current, base float64) float64 {
	if base <= 0 {
		return current
	}
	return 0.9*current + 0.1*base
}

// reversionGap is the fractional distance from price to anchor.
func reversionGap(price, anchor int64) float64 {
	if anchor <= 0 {
		return 0
	}
	return float64(anchor-price) / float64(anchor)
}

func clamp(ret, bound float64) float64 {
	if ret > bound {
		return bound
	}
	if ret < -bound {
		return -bound
	}
	return ret
}

// applyReturn applies a fractional return to a price, flooring to the minor
// unit and never dropping below MinPrice.
func applyReturn(price int64, ret float64) int64 {
	if price < MinPrice {
		price = MinPrice
	}
	return floorPrice(int64(math.Floor(float64(price) * (1 + ret))))
}

func floorPrice(p int64) int64 {
	if p < MinPrice {
		return MinPrice
	}
	return p
}
