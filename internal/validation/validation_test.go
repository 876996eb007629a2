package validation

import "testing"

func TestErrors(t *testing.T) {
	var errs Errors
	if errs.Err() != nil {
		t.Fatal("empty Errors must convert to a nil error")
	}

	errs.AddIf(ValidateRequired("  ", "stage"))
	errs.AddIf(ValidateRequired("dev", "environment"))
	errs.AddIf(ValidateHTTPURL("ftp://files.example", "host"))

	if !errs.HasErrors() || len(errs) != 2 {
		t.Fatalf("errors = %v, want 2 entries", errs)
	}
	if got, want := errs.Error(), "stage: is required; host: must be an absolute http(s) URL"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidateHTTPURL(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"https://config.example", true},
		{"http://localhost:8080", true},
		{"config.example", false},
		{"", false},
		{"https://", false},
	}

	for _, c := range cases {
		if got := ValidateHTTPURL(c.in, "host") == nil; got != c.valid {
			t.Errorf("ValidateHTTPURL(%q) valid = %v, want %v", c.in, got, c.valid)
		}
	}
}
