package config

// AggregationType determines how a Deriver selects one raw claim among candidates.
type AggregationType string

const (
	AggregationBestSupported AggregationType = "best_supported"
	AggregationLatest        AggregationType = "latest"
	AggregationMax           AggregationType = "max"
	AggregationMin           AggregationType = "min"
	AggregationAverage       AggregationType = "average"
)

// IsValid reports whether the aggregation type is one of the recognized strategies.
func (a AggregationType) IsValid() bool {
	switch a {
	case AggregationBestSupported, AggregationLatest, AggregationMax, AggregationMin, AggregationAverage:
		return true
	default:
		return false
	}
}

// ValueType is the typed kind of a Claim's value.
type ValueType string

const (
	ValueTypeNumber ValueType = "number"
	ValueTypeString ValueType = "string"
	ValueTypeEnum   ValueType = "enum"
	ValueTypeBool   ValueType = "bool"
)

// IsValid reports whether the value type is recognized.
func (v ValueType) IsValid() bool {
	switch v {
	case ValueTypeNumber, ValueTypeString, ValueTypeEnum, ValueTypeBool:
		return true
	default:
		return false
	}
}

// FeedType is the syndication format of a SourceFeed.
type FeedType string

const (
	FeedTypeRSS  FeedType = "rss"
	FeedTypeAtom FeedType = "atom"
	FeedTypeJSON FeedType = "json"
	FeedTypeHTML FeedType = "html"
	FeedTypeAPI  FeedType = "api"
)

// IsValid reports whether the feed type is recognized.
func (f FeedType) IsValid() bool {
	switch f {
	case FeedTypeRSS, FeedTypeAtom, FeedTypeJSON, FeedTypeHTML, FeedTypeAPI:
		return true
	default:
		return false
	}
}
