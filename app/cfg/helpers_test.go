package cfg

import (
	"reflect"
	"testing"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"openai,anthropic,google", []string{"openai", "anthropic", "google"}},
		{" OpenAI , Anthropic ", []string{"openai", "anthropic"}},
		{"openai,,google", []string{"openai", "google"}},
		{"", nil},
		{",,", []string{}},
	}

	for _, tt := range tests {
		got := splitList(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := &Cfg{
		ReleaseDigestHourUTC: 1,
		BlogDigestHourUTC:    2,
		RetentionDays:        30,
		WorkerCount:          5,
	}
	if err := validate(valid); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Cfg)
	}{
		{"digest hour too large", func(c *Cfg) { c.ReleaseDigestHourUTC = 24 }},
		{"negative blog digest hour", func(c *Cfg) { c.BlogDigestHourUTC = -1 }},
		{"zero retention", func(c *Cfg) { c.RetentionDays = 0 }},
		{"zero workers", func(c *Cfg) { c.WorkerCount = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *valid
			tt.mutate(&c)
			if err := validate(&c); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAllVendors(t *testing.T) {
	c := &Cfg{
		VendorsT0: []string{"openai"},
		VendorsT1: []string{"xai", "meta"},
		VendorsT2: []string{"vercel"},
	}

	vendors := c.AllVendors()
	if len(vendors) != 4 {
		t.Errorf("got %d vendors, want 4", len(vendors))
	}
}
