package source

import "testing"

func TestParseEntry(t *testing.T) {
	tests := []struct {
		raw  string
		text string
		hint string
	}{
		{"Sobremesa (culture)", "Sobremesa", "culture"},
		{"Echar la mano (help)", "Echar la mano", "help"},
		{"No tengo vela en este entierro", "No tengo vela en este entierro", "None"},
		{"Gato (animal)", "Gato", "animal"},
		{"  banco  ", "banco", "None"},
		{"banco ()", "banco", "None"},
		{"ir(se) (reflexive)", "ir(se)", "reflexive"},
		{"nested (outer (inner))", "nested", "outer (inner)"},
		{"(only a hint)", "(only a hint)", "None"},
		{"unbalanced paren)", "unbalanced paren)", "None"},
		{"", "", "None"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			text, hint := ParseEntry(tt.raw)
			if text != tt.text {
				t.Errorf("text = %q, want %q", text, tt.text)
			}
			if hint != tt.hint {
				t.Errorf("hint = %q, want %q", hint, tt.hint)
			}
		})
	}
}
