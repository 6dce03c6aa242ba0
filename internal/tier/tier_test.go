package tier

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"free", Free},
		{"maker", Maker},
		{"pro", Pro},
		{"agency", Agency},
		{"enterprise", Enterprise},
		{"lifetime", Lifetime},
		{"unlimited", Unlimited},
		{"admin", Admin},
		{"", Unknown},
		{"platinum", Unknown},
		{"PRO", Unknown}, // tiers are stored lowercase; no normalization here
	}

	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMultiplier(t *testing.T) {
	tests := []struct {
		tier Tier
		want float64
	}{
		{Free, 2.0},
		{Maker, 1.5},
		{Pro, 1.0},
		{Agency, 0.5},
		{Enterprise, 0.5},
		{Lifetime, 0.75},
		{Unlimited, 0.0},
		{Admin, 0.0},
		{Unknown, 1.0},
	}

	for _, tt := range tests {
		if got := tt.tier.Multiplier(); got != tt.want {
			t.Errorf("%s.Multiplier() = %v, want %v", tt.tier, got, tt.want)
		}
	}

	t.Run("higher tiers never pay more", func(t *testing.T) {
		order := []Tier{Free, Maker, Pro, Agency}
		for i := 1; i < len(order); i++ {
			if order[i].Multiplier() > order[i-1].Multiplier() {
				t.Errorf("%s pays more than %s", order[i], order[i-1])
			}
		}
	})
}

func TestExempt(t *testing.T) {
	for _, tr := range []Tier{Unlimited, Admin} {
		if !tr.Exempt() {
			t.Errorf("%s.Exempt() = false, want true", tr)
		}
	}
	for _, tr := range []Tier{Free, Maker, Pro, Agency, Enterprise, Lifetime, Unknown} {
		if tr.Exempt() {
			t.Errorf("%s.Exempt() = true, want false", tr)
		}
	}
}

func TestLimits(t *testing.T) {
	t.Run("higher tiers never get fewer requests", func(t *testing.T) {
		order := []Tier{Free, Maker, Pro, Agency, Enterprise, Unlimited}
		for i := 1; i < len(order); i++ {
			lo, hi := order[i-1].Limits(), order[i].Limits()
			for _, class := range []LimitClass{ClassGeneral, ClassGeneration, ClassUpload} {
				if hi.For(class) < lo.For(class) {
					t.Errorf("%s %s limit %d < %s limit %d", order[i], class, hi.For(class), order[i-1], lo.For(class))
				}
			}
		}
	})

	t.Run("auth limit stays tight for non-admin tiers", func(t *testing.T) {
		for _, tr := range []Tier{Free, Pro, Enterprise, Unlimited, Unknown} {
			if got := tr.Limits().For(ClassAuth); got != 10 {
				t.Errorf("%s auth limit = %d, want 10", tr, got)
			}
		}
	})

	t.Run("admin is uncapped everywhere", func(t *testing.T) {
		l := Admin.Limits()
		for _, class := range []LimitClass{ClassGeneral, ClassGeneration, ClassUpload, ClassAuth} {
			if l.For(class) != NoLimit {
				t.Errorf("admin %s limit = %d, want NoLimit", class, l.For(class))
			}
		}
	})

	t.Run("unknown tier gets free-tier limits", func(t *testing.T) {
		if Unknown.Limits() != Free.Limits() {
			t.Errorf("Unknown.Limits() = %+v, want %+v", Unknown.Limits(), Free.Limits())
		}
	})

	t.Run("unknown class falls back to general", func(t *testing.T) {
		l := Pro.Limits()
		if l.For(LimitClass("mystery")) != l.General {
			t.Error("unknown class should use the general cap")
		}
	})
}
