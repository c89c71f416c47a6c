package common

const (
	// KEY_INDICATOR is series id, indicator type, canonical params.
	KEY_INDICATOR = "indicator:%s:%s:%s"
)

const (
	DEFAULT_SYMBOL   = "VN30F1M"
	DEFAULT_INTERVAL = "1m"
)
