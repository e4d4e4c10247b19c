package report

import (
	"encoding/json"
	"os"

	"example.com/podrom/internal/ecid"
)

func SaveCardJSON(card *ecid.Card, out string) error {
	b, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadCardJSON(path string) (*ecid.Card, error) {
	var card ecid.Card
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &card); err != nil {
		return nil, err
	}
	return &card, nil
}
