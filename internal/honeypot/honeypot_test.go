package honeypot

import "testing"

func TestCheckTrapsNonEmptyDecoyField(t *testing.T) {
	d := NewDetector(nil)

	check := d.Check(map[string]string{
		"name":    "Alice",
		"email":   "alice@example.com",
		"website": "http://spam.example",
	})

	if !check.Trapped {
		t.Fatal("expected submission with non-empty website field to be trapped")
	}
	if check.Field != "website" {
		t.Errorf("trapped field = %q, want %q", check.Field, "website")
	}
}

func TestCheckIgnoresEmptyDecoyFields(t *testing.T) {
	d := NewDetector(nil)

	check := d.Check(map[string]string{
		"name":    "Alice",
		"website": "",
		"url":     "",
	})

	if check.Trapped {
		t.Errorf("expected empty decoy fields to pass, trapped on %q", check.Field)
	}
}

func TestCheckReportsFirstDecoyInOrder(t *testing.T) {
	d := NewDetector([]string{"hp_field", "website"})

	check := d.Check(map[string]string{
		"website":  "filled",
		"hp_field": "also filled",
	})

	if check.Field != "hp_field" {
		t.Errorf("trapped field = %q, want first configured decoy %q", check.Field, "hp_field")
	}
}

func TestCheckPassesWithoutDecoyFields(t *testing.T) {
	d := NewDetector(nil)

	check := d.Check(map[string]string{
		"name":    "Alice",
		"email":   "alice@example.com",
		"message": "hello",
	})

	if check.Trapped {
		t.Error("expected submission without decoy fields to pass")
	}
}

func TestNewDetectorCustomFields(t *testing.T) {
	d := NewDetector([]string{"fax_number"})

	if check := d.Check(map[string]string{"website": "filled"}); check.Trapped {
		t.Error("default decoy field should not trap when a custom list is configured")
	}
	if check := d.Check(map[string]string{"fax_number": "filled"}); !check.Trapped {
		t.Error("custom decoy field should trap")
	}
}
