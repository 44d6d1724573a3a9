package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/deeprlabs/deepr"
)

// Auto tries a readability-based fetch first, falling back to a headless
// browser render only when the cheap path errors or returns fewer than
// minUsableContentChars characters of content — most pages
// don't need a browser, and spinning one up for every URL would be far
// slower than the two-tier newser provider selection this mirrors.
type Auto struct {
	fast deepr.FetchProvider
	slow deepr.FetchProvider
}

// NewAuto constructs a tiered fetcher. fast is tried first (typically
// *ReadabilityFetcher); slow is used only when fast returns suspiciously
// little content (typically *ChromeDPFetcher).
func NewAuto(fast, slow deepr.FetchProvider) *Auto {
	return &Auto{fast: fast, slow: slow}
}

// minUsableContentChars is the threshold below which a fast-tier fetch is
// assumed to have hit a JS-rendered shell rather than real content.
const minUsableContentChars = 200

func (a *Auto) Fetch(ctx context.Context, url string) (deepr.FetchResult, error) {
	if a.fast != nil {
		res, err := a.fast.Fetch(ctx, url)
		if err == nil && len(strings.TrimSpace(res.Content)) >= minUsableContentChars {
			return res, nil
		}
	}
	if a.slow == nil {
		return deepr.FetchResult{}, fmt.Errorf("auto fetch: fast tier failed and no slow tier configured for %s", url)
	}
	return a.slow.Fetch(ctx, url)
}
