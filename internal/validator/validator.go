// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// tickerRegex accepts 1-8 letters or digits; handlers uppercase before use.
var tickerRegex = regexp.MustCompile(`^[A-Za-z0-9]{1,8}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("asset_kind", validateAssetKind)
		_ = v.RegisterValidation("trade_side", validateTradeSide)
		_ = v.RegisterValidation("ticker", validateTicker)
	}
}

func validateAssetKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "stock", "crypto":
		return true
	}
	return false
}

func validateTradeSide(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "buy", "sell":
		return true
	}
	return false
}

func validateTicker(fl validator.FieldLevel) bool {
	return tickerRegex.MatchString(fl.Field().String())
}
