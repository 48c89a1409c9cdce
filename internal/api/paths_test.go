package api

import "testing"

func TestPaths(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"collection", ResourcePath("rooms"), "/api/rooms/"},
		{"nested collection", ResourcePath("/housekeeping/tasks/"), "/api/housekeeping/tasks/"},
		{"item", ItemPath("rooms", "42"), "/api/rooms/42/"},
		{"item action", ActionPath("housekeeping/tasks", "7", "start"), "/api/housekeeping/tasks/7/start/"},
		{"collection action", ActionPath("notifications", "", "mark-all-read"), "/api/notifications/mark-all-read/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestValidateResource(t *testing.T) {
	for _, ok := range []string{"rooms", "housekeeping/tasks", "/ota/channels/"} {
		if err := ValidateResource(ok); err != nil {
			t.Errorf("ValidateResource(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "  ", "rooms/../admin", "a//b"} {
		if err := ValidateResource(bad); err == nil {
			t.Errorf("ValidateResource(%q) expected error", bad)
		}
	}
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"['Cannot delete room with active reservation']"}`, "['Cannot delete room with active reservation']"},
		{`{"detail":"Not found."}`, "Not found."},
		{`{"non_field_errors":["Dates overlap"]}`, "Dates overlap"},
		{`["first problem"]`, "first problem"},
		{`plain text failure`, "plain text failure"},
		{``, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		if got := extractMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("extractMessage(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
