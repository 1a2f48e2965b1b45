package internal

import (
	"sjsage522/dealerworker/internal/translator"
	"sjsage522/dealerworker/services/cache"
	"sjsage522/dealerworker/services/proxy"
	"sjsage522/dealerworker/services/publisher"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Cache      cache.CacheService
	Publisher  publisher.Publisher
	Proxy      proxy.ProxyManager
	Translator *translator.LocationTranslator
}
