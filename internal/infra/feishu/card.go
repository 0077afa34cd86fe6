package feishu

import "encoding/json"

// Button is an action button on a card. Value is echoed back in the card callback.
type Button struct {
	Text  string
	Style string // default, primary, danger
	Value map[string]string
}

// BuildCard renders an interactive card with a markdown body and optional buttons.
// Cards are shared so every viewer sees later updates.
func BuildCard(title, template, body string, buttons []Button) string {
	elements := []map[string]any{
		{
			"tag":  "div",
			"text": map[string]any{"tag": "lark_md", "content": body},
		},
	}
	if len(buttons) > 0 {
		actions := make([]map[string]any, 0, len(buttons))
		for _, b := range buttons {
			style := b.Style
			if style == "" {
				style = "default"
			}
			actions = append(actions, map[string]any{
				"tag":   "button",
				"text":  map[string]any{"tag": "plain_text", "content": b.Text},
				"type":  style,
				"value": b.Value,
			})
		}
		elements = append(elements, map[string]any{"tag": "action", "actions": actions})
	}

	card := map[string]any{
		"config": map[string]any{"wide_screen_mode": true, "update_multi": true},
		"header": map[string]any{
			"title":    map[string]any{"tag": "plain_text", "content": title},
			"template": template,
		},
		"elements": elements,
	}
	b, _ := json.Marshal(card)
	return string(b)
}
