package template

import "testing"

type orderRecord struct {
	name    string
	total   float64
	partner partnerRef
	tags    []string
	urgent  bool
	note    *string
}

type partnerRef struct {
	name string
}

func (p partnerRef) DisplayName() string { return p.name }

func (o orderRecord) Fields() map[string]any {
	return map[string]any{
		"name":         o.name,
		"amount_total": o.total,
		"partner_id":   o.partner,
		"tag_ids":      o.tags,
		"urgent":       o.urgent,
		"note":         o.note,
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tmpl   string
		fields map[string]any
		want   string
	}{
		{
			name:   "basic substitution",
			tmpl:   "Hi %name%, total %amount_total%",
			fields: map[string]any{"name": "SO001", "amount_total": 150.0},
			want:   "Hi SO001, total 150.0",
		},
		{
			name:   "unknown placeholder untouched",
			tmpl:   "Order %name% is %state%",
			fields: map[string]any{"name": "SO001"},
			want:   "Order SO001 is %state%",
		},
		{
			name:   "no placeholders",
			tmpl:   "Your order has shipped",
			fields: map[string]any{"name": "SO001"},
			want:   "Your order has shipped",
		},
		{
			name:   "repeated placeholder",
			tmpl:   "%name% / %name%",
			fields: map[string]any{"name": "A"},
			want:   "A / A",
		},
		{
			name: "nil field map returns template",
			tmpl: "Hi %name%",
			want: "Hi %name%",
		},
		{
			name:   "nil value renders empty",
			tmpl:   "note: %note%",
			fields: map[string]any{"note": nil},
			want:   "note: ",
		},
		{
			name:   "placeholder inside a value stays verbatim",
			tmpl:   "%note% for %name%",
			fields: map[string]any{"note": "see %name%", "name": "SO001"},
			want:   "see %name% for SO001",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Render(tt.tmpl, tt.fields); got != tt.want {
				t.Fatalf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderRecord(t *testing.T) {
	t.Parallel()

	record := orderRecord{
		name:    "SO042",
		total:   99.5,
		partner: partnerRef{name: "Acme"},
		tags:    []string{"vip", "export"},
		urgent:  true,
	}

	got := RenderRecord(
		"Order %name% for %partner_id% (%tag_ids%), urgent: %urgent%, note: %note%",
		record,
	)
	want := "Order SO042 for Acme (vip, export), urgent: Yes, note: "
	if got != want {
		t.Fatalf("RenderRecord() = %q, want %q", got, want)
	}

	if got := RenderRecord("plain", nil); got != "plain" {
		t.Fatalf("RenderRecord(nil record) = %q, want plain", got)
	}
}

func TestStringify(t *testing.T) {
	t.Parallel()

	note := "call first"
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "nil", value: nil, want: ""},
		{name: "string", value: "abc", want: "abc"},
		{name: "true", value: true, want: "Yes"},
		{name: "false", value: false, want: "No"},
		{name: "int", value: 42, want: "42"},
		{name: "integral float", value: 150.0, want: "150.0"},
		{name: "fractional float", value: 99.5, want: "99.5"},
		{name: "float32", value: float32(2), want: "2.0"},
		{name: "negative float", value: -3.0, want: "-3.0"},
		{name: "display name", value: partnerRef{name: "Acme"}, want: "Acme"},
		{name: "string slice", value: []string{"a", "b"}, want: "a, b"},
		{name: "int slice", value: []int{1, 2, 3}, want: "1, 2, 3"},
		{name: "nil pointer", value: (*string)(nil), want: ""},
		{name: "pointer", value: &note, want: "call first"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Stringify(tt.value); got != tt.want {
				t.Fatalf("Stringify(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
