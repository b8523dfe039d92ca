package server

import "testing"

func TestExtractWhatsAppMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantUser string
		wantText string
		wantOK   bool
	}{
		{
			"text message",
			`{"entry":[{"changes":[{"value":{"messages":[{"from":"34600111222","type":"text","text":{"body":"hola"}}]}}]}]}`,
			"34600111222", "hola", true,
		},
		{
			"button reply yields id",
			`{"entry":[{"changes":[{"value":{"messages":[{"from":"34600111222","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"opt_yes","title":"Sí"}}}]}}]}]}`,
			"34600111222", "opt_yes", true,
		},
		{
			"list reply yields id",
			`{"entry":[{"changes":[{"value":{"messages":[{"from":"34600111222","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"row_2","title":"Soporte"}}}]}}]}]}`,
			"34600111222", "row_2", true,
		},
		{
			"status update ignored",
			`{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.X","status":"delivered"}]}}]}]}`,
			"", "", false,
		},
		{
			"missing sender ignored",
			`{"entry":[{"changes":[{"value":{"messages":[{"text":{"body":"hola"}}]}}]}]}`,
			"", "", false,
		},
		{"not json", `nope`, "", "", false},
		{"empty object", `{}`, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, text, ok := extractWhatsAppMessage([]byte(tt.body))
			if ok != tt.wantOK || user != tt.wantUser || text != tt.wantText {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)",
					user, text, ok, tt.wantUser, tt.wantText, tt.wantOK)
			}
		})
	}
}

func TestExtractTelegramMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantUser string
		wantText string
		wantOK   bool
	}{
		{
			"text message",
			`{"update_id":1,"message":{"chat":{"id":987654321},"text":"hola"}}`,
			"987654321", "hola", true,
		},
		{
			"negative group chat id",
			`{"update_id":2,"message":{"chat":{"id":-1001234},"text":"hola"}}`,
			"-1001234", "hola", true,
		},
		{
			"callback query yields data",
			`{"update_id":3,"callback_query":{"data":"opt_no","message":{"chat":{"id":987654321}}}}`,
			"987654321", "opt_no", true,
		},
		{
			"edited message ignored",
			`{"update_id":4,"edited_message":{"chat":{"id":987654321},"text":"hola"}}`,
			"", "", false,
		},
		{"not json", `nope`, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, text, ok := extractTelegramMessage([]byte(tt.body))
			if ok != tt.wantOK || user != tt.wantUser || text != tt.wantText {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)",
					user, text, ok, tt.wantUser, tt.wantText, tt.wantOK)
			}
		})
	}
}
