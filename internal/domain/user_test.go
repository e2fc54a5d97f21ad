package domain

import (
	"encoding/json"
	"testing"
)

func TestUserIDDecodesNumbersAndStrings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want UserID
	}{
		{"number", `{"id":42}`, "42"},
		{"string", `{"id":"u-7f3a"}`, "u-7f3a"},
		{"numeric string", `{"id":"42"}`, "42"},
		{"null", `{"id":null}`, ""},
		{"missing", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u UserProfile
			if err := json.Unmarshal([]byte(tt.in), &u); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.in, err)
			}
			if u.ID != tt.want {
				t.Errorf("ID = %q, want %q", u.ID, tt.want)
			}
		})
	}
}

func TestUserIDRejectsOtherTypes(t *testing.T) {
	var u UserProfile
	if err := json.Unmarshal([]byte(`{"id":true}`), &u); err == nil {
		t.Error("expected error for boolean id")
	}
}

func TestUserIDRoundTrip(t *testing.T) {
	for _, id := range []UserID{"42", "u-7f3a", `"quoted"`, ""} {
		data, err := json.Marshal(UserProfile{ID: id})
		if err != nil {
			t.Fatalf("marshal %q: %v", id, err)
		}
		var got UserProfile
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got.ID != id {
			t.Errorf("round trip of %q gave %q (%s)", id, got.ID, data)
		}
	}

	data, _ := json.Marshal(UserProfile{ID: "42"})
	if want := `{"id":42,"email":"","name":""}`; string(data) != want {
		t.Errorf("numeric id marshalled as %s, want %s", data, want)
	}
}
