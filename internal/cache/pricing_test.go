package cache

import "testing"

func TestEstimateCost_Sonnet(t *testing.T) {
	got := EstimateCost("claude-sonnet-4-5-20250929", 1250, 890)
	want := (1250.0/1_000_000)*3.0 + (890.0/1_000_000)*15.0
	if diff := got - want; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEstimateCost_Opus46(t *testing.T) {
	got := EstimateCost("claude-opus-4-6", 1000, 500)
	want := (1000.0/1_000_000)*5.0 + (500.0/1_000_000)*25.0
	if diff := got - want; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEstimateCost_Opus41(t *testing.T) {
	got := EstimateCost("claude-opus-4-1-20250805", 1000, 500)
	want := (1000.0/1_000_000)*15.0 + (500.0/1_000_000)*75.0
	if diff := got - want; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEstimateCost_Haiku45(t *testing.T) {
	got := EstimateCost("claude-haiku-4-5-20251001", 1000, 500)
	want := (1000.0/1_000_000)*1.0 + (500.0/1_000_000)*5.0
	if diff := got - want; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEstimateCost_UnknownModelDefaultsToSonnetRate(t *testing.T) {
	got := EstimateCost("some-unknown-model", 1000, 500)
	want := (1000.0/1_000_000)*3.0 + (500.0/1_000_000)*15.0
	if diff := got - want; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEstimateTokensFromChars(t *testing.T) {
	cases := map[int]uint64{400: 100, 0: 0, 3: 0}
	for chars, want := range cases {
		if got := EstimateTokensFromChars(chars); got != want {
			t.Errorf("EstimateTokensFromChars(%d) = %d, want %d", chars, got, want)
		}
	}
}
