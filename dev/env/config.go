package devenv

const LiveTestConfigFile = "mhrs_live.json5"

// LiveTestConfig is read from dev/.state/mhrs_live.json5, tests that talk
// to the real MHRS servers skip themselves when it is absent.
type LiveTestConfig struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
	RegionId int64  `json:"region_id"`
}
