// Package search provides search provider implementations for the deepr
// research agent.
//
// Available providers:
//
//   - DuckDuckGo: free, no API key (HTML scraping of lite.duckduckgo.com)
//   - Brave: requires API key via X-Subscription-Token header
//   - Tavily: requires API key, supports basic/advanced depth modes
//   - Serper: requires API key, Google SERP proxy
//   - Multi: fans a query out across several providers and merges results
//
// # DuckDuckGo Example
//
//	provider := search.NewDuckDuckGo()
//	results, err := provider.Search(ctx, "golang web frameworks")
//
// # Brave Example
//
//	provider := search.NewBrave("your-api-key")
//	results, err := provider.Search(ctx, "best practices for API design")
//
// # Tavily Example
//
//	provider := search.NewTavily("your-api-key", "advanced")
//	results, err := provider.Search(ctx, "climate change research 2024")
//
// # Custom Providers
//
// Implement deepr.SearchProvider to add your own search backend:
//
//	type SearchProvider interface {
//	    Search(ctx context.Context, query string) ([]deepr.SearchResult, error)
//	}
package search
