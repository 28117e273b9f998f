package brush

import "testing"

func TestSanitizeClampsRanges(t *testing.T) {
	s := Settings{
		BaseRadius:         -5,
		AALevel:            99,
		Flow:               2,
		Hardness:           -1,
		Scatter:            3,
		Hollow:             Hollow{Ratio: 5},
		StreamlineStrength: -2,
	}
	s.Sanitize()
	if s.BaseRadius != 0 {
		t.Errorf("negative BaseRadius should clamp to 0, got %v", s.BaseRadius)
	}
	if s.AALevel != 9 {
		t.Errorf("AALevel should clamp to 9, got %v", s.AALevel)
	}
	if s.Flow != 1 {
		t.Errorf("Flow should clamp to 1, got %v", s.Flow)
	}
	if s.Hardness != 0 {
		t.Errorf("Hardness should clamp to 0, got %v", s.Hardness)
	}
	if s.Scatter != 1 {
		t.Errorf("Scatter should clamp to 1, got %v", s.Scatter)
	}
	if s.Hollow.Ratio != 1 {
		t.Errorf("Hollow.Ratio should clamp to 1, got %v", s.Hollow.Ratio)
	}
	if s.StreamlineStrength != 0 {
		t.Errorf("StreamlineStrength should clamp to 0, got %v", s.StreamlineStrength)
	}
}

func TestSanitizeNegativeAALevel(t *testing.T) {
	s := Settings{AALevel: -3}
	s.Sanitize()
	if s.AALevel != 0 {
		t.Errorf("negative AALevel should clamp to 0, got %v", s.AALevel)
	}
}

func TestSanitizeNaNRadius(t *testing.T) {
	nan := float32(0)
	nan = nan / nan // NaN without tripping a compiler constant-division error
	s := Settings{BaseRadius: nan}
	s.Sanitize()
	if s.BaseRadius != 0 {
		t.Errorf("NaN BaseRadius should clamp to 0, got %v", s.BaseRadius)
	}
}

func TestSanitizeNilReceiverDoesNotPanic(t *testing.T) {
	var s *Settings
	s.Sanitize()
}

func TestDefaultIsAlreadySane(t *testing.T) {
	s := Default()
	before := s
	s.Sanitize()
	if s != before {
		t.Fatalf("Default() settings should already be sanitized: %+v vs %+v", before, s)
	}
}
