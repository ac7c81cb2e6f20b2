package httpclient

import (
	"math/rand/v2"
	"net/http"
)

// HeaderProfile is the data table browser-like headers are synthesized from.
// Swapping the pools changes the fingerprint without touching the client
type HeaderProfile struct {
	// Fixed headers sent with every synthesized request
	Base map[string]string

	// User-Agent pool, one is picked per request
	UserAgents []string

	// Accept-Language pool, one is picked per request
	Languages []string

	// Referer pool, one is picked with RefererChance probability
	Referers []string

	// Probability in [0, 1] of sending a Referer
	RefererChance float64
}

// DefaultHeaderProfile returns the default desktop browser profile
func DefaultHeaderProfile() HeaderProfile {
	return HeaderProfile{
		Base: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Encoding":           "gzip, deflate, br",
			"DNT":                       "1",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
			"Cache-Control":             "no-cache",
			"Pragma":                    "no-cache",
			"Sec-Ch-Ua":                 `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
			"Sec-Ch-Ua-Mobile":          "?0",
			"Sec-Ch-Ua-Platform":        `"Windows"`,
		},
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Edge/120.0.0.0",
			"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
		},
		Languages: []string{
			"es-PE,es;q=0.9,en;q=0.8,en-US;q=0.7",
			"en-US,en;q=0.9,es;q=0.8",
			"es-ES,es;q=0.9,en;q=0.8",
			"en-GB,en;q=0.9,es;q=0.8",
			"es-MX,es;q=0.9,en;q=0.8",
		},
		Referers: []string{
			"https://www.google.com/",
		},
		RefererChance: 0.5,
	}
}

// headerPicker supplies the randomness for header synthesis
type headerPicker struct {
	intN    func(n int) int
	float64 func() float64
}

var defaultPicker = headerPicker{
	intN:    rand.IntN,
	float64: rand.Float64,
}

// Headers synthesizes a fresh header set from the profile
func (p HeaderProfile) Headers() http.Header {
	return p.headers(defaultPicker)
}

func (p HeaderProfile) headers(pick headerPicker) http.Header {
	h := make(http.Header, len(p.Base)+3)

	for k, v := range p.Base {
		h.Set(k, v)
	}

	if len(p.UserAgents) > 0 {
		h.Set("User-Agent", p.UserAgents[pick.intN(len(p.UserAgents))])
	}

	if len(p.Languages) > 0 {
		h.Set("Accept-Language", p.Languages[pick.intN(len(p.Languages))])
	}

	if len(p.Referers) > 0 && pick.float64() < p.RefererChance {
		h.Set("Referer", p.Referers[pick.intN(len(p.Referers))])
	}

	return h
}
