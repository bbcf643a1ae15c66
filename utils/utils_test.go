package utils

import (
	"testing"

	"rastersim/types"
)

func TestParseThreshold(t *testing.T) {
	if v, err := ParseThreshold(" 0.65 "); err != nil || v != 0.65 {
		t.Fatalf("ParseThreshold = %v, %v", v, err)
	}
	for _, bad := range []string{"1.2", "-0.1", "high"} {
		v, err := ParseThreshold(bad)
		if err == nil {
			t.Errorf("ParseThreshold(%q) accepted", bad)
		}
		if v != 0.8 {
			t.Errorf("ParseThreshold(%q) fallback = %v", bad, v)
		}
	}
}

func TestParseMetrics(t *testing.T) {
	got, err := ParseMetrics("pearson, PSNR,,pearson")
	if err != nil {
		t.Fatalf("ParseMetrics: %v", err)
	}
	if len(got) != 2 || got[0] != types.MetricPearson || got[1] != types.MetricPSNR {
		t.Fatalf("ParseMetrics = %v", got)
	}
	if MetricNames(got) != "pearson,psnr" {
		t.Fatalf("MetricNames = %q", MetricNames(got))
	}

	if got, err := ParseMetrics(""); err != nil || len(got) != 0 {
		t.Fatalf("empty list = %v, %v", got, err)
	}
	if _, err := ParseMetrics("pearson,ssim"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}
