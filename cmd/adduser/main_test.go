package main

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{"", "user@example.com", "first.last+tag@mail.example.org"}
	for _, email := range valid {
		if err := validateEmail(email); err != nil {
			t.Errorf("validateEmail(%q) returned %v", email, err)
		}
	}

	invalid := []string{"user", "user@", "@example.com", "user@example"}
	for _, email := range invalid {
		if err := validateEmail(email); err == nil {
			t.Errorf("validateEmail(%q) should fail", email)
		}
	}
}

func TestValidateName(t *testing.T) {
	if err := validateName(""); err == nil {
		t.Errorf("Expected error for empty name")
	}
	if err := validateName("A"); err == nil {
		t.Errorf("Expected error for short name")
	}
	if err := validateName("Anna"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
