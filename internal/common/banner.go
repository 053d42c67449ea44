package common

import (
	"fmt"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the startup banner followed by the active providers
func PrintBanner(config *Config) {
	banner.PrintSimple("MarketLens", GetVersion())
	fmt.Printf("  llm: %s | prices: %s | news: %s | warehouse: %t\n\n",
		config.LLM.DefaultProvider, config.Prices.Provider, config.News.Provider, config.Warehouse.Enabled)
}
