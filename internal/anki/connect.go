package anki

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultURL is the AnkiConnect add-on's local endpoint.
const DefaultURL = "http://localhost:8765"

// connectVersion is the AnkiConnect protocol version this client speaks.
const connectVersion = 6

// cardCSS is the styling of the generated note type.
const cardCSS = ".card { font-family: arial; font-size: 20px; text-align: center; color: black; background-color: white; } img { max-width: 300px; }"

// modelFields are the note type's fields, in display order.
var modelFields = []string{"TargetWord", "Definition", "Sentence", "Translation", "Scenario", "Image", "Audio"}

// ConnectClient talks to a running Anki through the AnkiConnect HTTP API
// and implements Sink.
type ConnectClient struct {
	url        string
	deck       string
	model      string
	httpClient *http.Client
}

// NewConnectClient creates an AnkiConnect sink. url defaults to DefaultURL.
func NewConnectClient(url, deck, model string) *ConnectClient {
	if url == "" {
		url = DefaultURL
	}
	return &ConnectClient{
		url:        url,
		deck:       deck,
		model:      model,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns a short description for status messages.
func (c *ConnectClient) Name() string {
	return fmt.Sprintf("AnkiConnect (%s)", c.deck)
}

// invoke performs one AnkiConnect action. The response contract is strict:
// exactly a result field and an error field, anything else is a protocol
// failure.
func (c *ConnectClient) invoke(action string, params interface{}) (json.RawMessage, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"action":  action,
		"version": connectVersion,
		"params":  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", action, err)
	}

	resp, err := c.httpClient.Post(c.url, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("anki %s: %w (is Anki running with AnkiConnect?)", action, err)
	}
	defer resp.Body.Close()

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("anki %s: decode response: %w", action, err)
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("anki %s: response has an unexpected number of fields", action)
	}
	rawErr, ok := fields["error"]
	if !ok {
		return nil, fmt.Errorf("anki %s: response is missing required error field", action)
	}
	var errMsg *string
	if err := json.Unmarshal(rawErr, &errMsg); err != nil {
		return nil, fmt.Errorf("anki %s: decode error field: %w", action, err)
	}
	if errMsg != nil {
		return nil, fmt.Errorf("anki %s: %s", action, *errMsg)
	}
	return fields["result"], nil
}

// Version checks that Anki is open and AnkiConnect is listening.
func (c *ConnectClient) Version() (int, error) {
	raw, err := c.invoke("version", nil)
	if err != nil {
		return 0, err
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("anki version: %w", err)
	}
	return v, nil
}

// EnsureSetup idempotently creates the deck and the note type.
func (c *ConnectClient) EnsureSetup() error {
	if _, err := c.invoke("createDeck", map[string]string{"deck": c.deck}); err != nil {
		return err
	}

	raw, err := c.invoke("modelNames", nil)
	if err != nil {
		return err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return fmt.Errorf("anki modelNames: %w", err)
	}
	for _, name := range names {
		if name == c.model {
			return nil
		}
	}

	_, err = c.invoke("createModel", map[string]interface{}{
		"modelName":     c.model,
		"inOrderFields": modelFields,
		"css":           cardCSS,
		"cardTemplates": []map[string]string{
			{
				"Name":  "Card 1",
				"Front": "{{TargetWord}}",
				"Back":  "{{FrontSide}}<hr id=answer>{{Definition}}<br><br><i>{{Sentence}}</i><br><small>{{Translation}}</small><br>{{Audio}}<hr>{{Image}}<br><small>{{Scenario}}</small>",
			},
		},
	})
	return err
}

// Put inserts one note for an approved card.
func (c *ConnectClient) Put(card Card) error {
	note := map[string]interface{}{
		"deckName":  c.deck,
		"modelName": c.model,
		"fields": map[string]string{
			"TargetWord":  card.Target,
			"Definition":  card.Definition,
			"Sentence":    card.Sentence,
			"Translation": card.Translation,
			"Scenario":    card.Scenario,
			"Image":       ImageField(card.ImageFile),
			"Audio":       AudioField(card.AudioFile),
		},
		"tags": []string{"auto-generated"},
	}

	_, err := c.invoke("addNote", map[string]interface{}{"note": note})
	return err
}
