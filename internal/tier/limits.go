package tier

import "math"

// LimitClass is a coarse endpoint category sharing one rate-limit bucket.
type LimitClass string

const (
	ClassGeneral    LimitClass = "general"
	ClassGeneration LimitClass = "generation" // premium/LLM-backed endpoints
	ClassUpload     LimitClass = "upload"
	ClassAuth       LimitClass = "auth"
)

// NoLimit is the sentinel request cap for tiers with no cap on a class.
const NoLimit = math.MaxInt32

// ClassLimits holds per-window request caps for each limit class.
type ClassLimits struct {
	General    int
	Generation int
	Upload     int
	Auth       int
}

// For returns the cap for a single class.
func (l ClassLimits) For(class LimitClass) int {
	switch class {
	case ClassGeneral:
		return l.General
	case ClassGeneration:
		return l.Generation
	case ClassUpload:
		return l.Upload
	case ClassAuth:
		return l.Auth
	default:
		return l.General
	}
}

// Limits returns the per-window request caps for the tier. Like Multiplier,
// the switch is exhaustive over declared tiers.
func (t Tier) Limits() ClassLimits {
	switch t {
	case Free:
		return ClassLimits{General: 60, Generation: 10, Upload: 10, Auth: 10}
	case Maker:
		return ClassLimits{General: 120, Generation: 30, Upload: 30, Auth: 10}
	case Pro:
		return ClassLimits{General: 300, Generation: 60, Upload: 60, Auth: 10}
	case Agency:
		return ClassLimits{General: 600, Generation: 120, Upload: 120, Auth: 10}
	case Enterprise:
		return ClassLimits{General: 1200, Generation: 300, Upload: 300, Auth: 10}
	case Lifetime:
		return ClassLimits{General: 300, Generation: 60, Upload: 60, Auth: 10}
	case Unlimited:
		return ClassLimits{General: NoLimit, Generation: NoLimit, Upload: NoLimit, Auth: 10}
	case Admin:
		return ClassLimits{General: NoLimit, Generation: NoLimit, Upload: NoLimit, Auth: NoLimit}
	case Unknown:
		return ClassLimits{General: 60, Generation: 10, Upload: 10, Auth: 10}
	default:
		return ClassLimits{General: 60, Generation: 10, Upload: 10, Auth: 10}
	}
}
