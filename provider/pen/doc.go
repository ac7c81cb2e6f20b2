// Package pen provides USD/PEN quote providers for the Peruvian Sol (PEN).
//
// Every provider fetches through a Fetcher (usually an
// *httpclient.Client owned by the caller), runs a prioritized extraction
// chain and validates every candidate against the plausible range
// (1.0 - 10.0 by default).
//
// # Providers
//
// ## Bloomberg
//
// Source: "Bloomberg"
// URL: https://www.bloomberg.com/quote/USDPEN:CUR
// Interval: 15 minutes
//
// Scrapes the MID USD/PEN quote. Requests carry a fixed browser header set.
// Documents that are empty, shorter than 100 bytes or not HTML are treated
// as blocked fetches. Extraction order:
//
//   - priceText / value / price class selectors, div before span
//   - any div, span or p whose class contains "price" or "value"
//   - free text scan for standalone numbers with one or two decimals
//
// ## SBS
//
// Source: "SBS"
// URL: https://www.sbs.gob.pe/app/pp/SISTIP_PORTAL/Paginas/Publicacion/TipoCambioPromedio.aspx
// Interval: 1 hour
//
// Reads the "Dólar de N.A." row of the publication table. The second cell
// is the BUY rate, the third the SELL rate. When only one side is published
// the provider returns it along with an extract.ErrPartialQuote failure.
//
// ## Reference
//
// Source: configurable
// Interval: 1 hour
//
// Reads a single quote (MID by default) off any page, using the configured
// selectors followed by the class token and free text strategies.
package pen
