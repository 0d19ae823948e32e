// Package display decides how a search result set is rendered: as a flat
// list or as an aggregated tag cloud.
package display

// Mode is the rendering shape for a result set.
type Mode string

const (
	// ModeList renders results as a flat record list.
	ModeList Mode = "LIST"
	// ModeCloud renders results as a weighted tag cloud.
	ModeCloud Mode = "CLOUD"
)

// DefaultListToCloudThreshold is the result count above which the cloud view
// takes over.
const DefaultListToCloudThreshold = 20

// Config holds the mode thresholds.
//
// CloudToListThreshold is accepted for forward compatibility with a
// hysteresis scheme but is not read by the detection rule: the observed
// behavior is single-threshold and can flap near the boundary. Whether to
// add hysteresis is a product decision, not a bug fix.
type Config struct {
	ListToCloudThreshold int
	CloudToListThreshold int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ListToCloudThreshold: DefaultListToCloudThreshold,
		CloudToListThreshold: DefaultListToCloudThreshold,
	}
}

// Detect maps a result count to a display mode. Strictly greater than the
// threshold switches to the cloud; at or below it, including zero, stays the
// list. Stateless — prior mode is never consulted.
func Detect(resultCount int, cfg Config) Mode {
	threshold := cfg.ListToCloudThreshold
	if threshold <= 0 {
		threshold = DefaultListToCloudThreshold
	}
	if resultCount > threshold {
		return ModeCloud
	}
	return ModeList
}
