package currencies

import "github.com/sig-0/fxquotes/storage/types"

var (
	USD types.Currency = "USD"
	PEN types.Currency = "PEN"
)

// USDPEN is the pair every Peruvian source quotes
var USDPEN = types.Pair{
	Base:   USD,
	Target: PEN,
}
