package providers

// DefaultProviders returns the built-in provider set used when no providers file is configured.
func DefaultProviders() []Provider {
	return []Provider{
		{
			ID:               "daiichisankyo",
			Name:             "第一三共",
			BaseURL:          "https://www.daiichisankyo.co.jp",
			ListingURL:       "https://www.daiichisankyo.co.jp/media/press_release/",
			FetchStrategy:    StrategyBrowser,
			ReadySelector:    "ul.newslist > li",
			RowSelector:      "ul.newslist > li",
			TitleSelector:    "div.newsTitle a",
			LinkSelector:     "div.newsTitle a",
			DateSelector:     "div.newsDate",
			CategorySelector: "div.newsCategory",
			OutputPath:       "rss_output/DaiichiSankyo.xml",
			MaxItems:         10,
			TimeoutSeconds:   30,
			Feed: FeedConfig{
				Title:       "第一三共",
				Description: "第一三共プレスリリースの更新履歴",
				Language:    "ja",
			},
		},
	}
}
