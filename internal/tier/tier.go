package tier

// Tier is a user's subscription level. It is resolved once per request by the
// auth layer and drives every pricing multiplier and rate-limit table lookup.
type Tier string

const (
	Free       Tier = "free"
	Maker      Tier = "maker"
	Pro        Tier = "pro"
	Agency     Tier = "agency"
	Enterprise Tier = "enterprise"
	Lifetime   Tier = "lifetime"
	Unlimited  Tier = "unlimited"
	Admin      Tier = "admin"

	// Unknown is returned by Parse for tier strings that do not match any
	// known tier. It prices and limits like a default paid tier rather than
	// failing the request.
	Unknown Tier = "unknown"
)

// Parse maps a raw tier string (from a JWT claim or API key row) to a Tier.
// Unrecognized values become Unknown, never an error.
func Parse(s string) Tier {
	switch Tier(s) {
	case Free, Maker, Pro, Agency, Enterprise, Lifetime, Unlimited, Admin:
		return Tier(s)
	default:
		return Unknown
	}
}

// Multiplier returns the credit cost multiplier for the tier. Free users pay
// double, agency and enterprise pay half, unlimited and admin pay nothing.
// The switch is exhaustive over declared tiers so adding a tier without a
// multiplier is caught in review, not silently defaulted at runtime.
func (t Tier) Multiplier() float64 {
	switch t {
	case Free:
		return 2.0
	case Maker:
		return 1.5
	case Pro:
		return 1.0
	case Agency:
		return 0.5
	case Enterprise:
		return 0.5
	case Lifetime:
		return 0.75
	case Unlimited:
		return 0.0
	case Admin:
		return 0.0
	case Unknown:
		return 1.0
	default:
		return 1.0
	}
}

// Exempt reports whether the tier bypasses credit charging entirely.
func (t Tier) Exempt() bool {
	return t.Multiplier() == 0
}

func (t Tier) String() string {
	return string(t)
}
