package model

// ================ Config ================
type GatewayConfig struct {
	Model string `envconfig:"GEMINI_MODEL" default:"gemini-3-flash-preview"`
	Trends struct {
		Count     int  `envconfig:"TRENDS_COUNT" default:"6"`
		UseSearch bool `envconfig:"TRENDS_USE_SEARCH" default:"true"`
	}
}

// DefaultCategory is used when a trend query names no category.
const DefaultCategory = "all"

// DefaultTrendCount is the number of products requested when unset.
const DefaultTrendCount = 6
