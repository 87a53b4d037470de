package models_test

import (
	"encoding/json"
	"testing"

	"github.com/Skryldev/user-records/models"
)

func TestUserPatch_AgePresence(t *testing.T) {
	cases := []struct {
		body    string
		set     bool
		wantNil bool
		want    int64
	}{
		{body: `{}`, set: false, wantNil: true},
		{body: `{"name":"Alice"}`, set: false, wantNil: true},
		{body: `{"age":null}`, set: true, wantNil: true},
		{body: `{"age":0}`, set: true, want: 0},
		{body: `{"age":42}`, set: true, want: 42},
	}
	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			var p models.UserPatch
			if err := json.Unmarshal([]byte(tc.body), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if p.Age.Set != tc.set {
				t.Fatalf("Set = %v, want %v", p.Age.Set, tc.set)
			}
			if tc.wantNil {
				if p.Age.Value != nil {
					t.Fatalf("expected nil value, got %d", *p.Age.Value)
				}
				return
			}
			if p.Age.Value == nil || *p.Age.Value != tc.want {
				t.Fatalf("expected %d, got %v", tc.want, p.Age.Value)
			}
		})
	}
}

func TestUserPatch_RejectsNonInteger(t *testing.T) {
	var p models.UserPatch
	if err := json.Unmarshal([]byte(`{"age":"ten"}`), &p); err == nil {
		t.Fatal("expected error for non-integer age")
	}
}

func TestUser_NullAgeSerializesAsNull(t *testing.T) {
	b, err := json.Marshal(models.User{ID: 1, Name: "Bob", Email: "bob@x.com"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if v, ok := m["age"]; !ok || v != nil {
		t.Fatalf("expected age:null, got %s", b)
	}
}
