package telemetry

// Snapshot fetch attributes
const (
	AttrInfoEndpoint   = "info.endpoint"
	AttrInfoTransport  = "info.transport"
	AttrInfoBytes      = "info.document_bytes"
	AttrInfoDurationMS = "info.fetch_duration_ms"
	AttrInfoCacheHit   = "info.cache_hit"
)

// Scrape cycle attributes
const (
	AttrScrapeDurationMS    = "scrape.duration_ms"
	AttrScrapeFamilyCount   = "scrape.family_count"
	AttrScrapeSampleCount   = "scrape.sample_count"
	AttrScrapeStatus        = "scrape.status"
	AttrScrapeCategory      = "scrape.category"
	AttrScrapeMemberCount   = "scrape.member_count"
	AttrScrapeCategoryCount = "scrape.category_count"
)

// Error attributes
const (
	AttrError = "error"
)
