package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier posts trade summaries to a webhook. Fire and forget, a
// failed notification never affects the pipeline.
type Notifier struct {
	url    string
	client *http.Client
}

func NewNotifier(url string) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

type Message struct {
	Pair      string `json:"pair"`
	Status    string `json:"status"`
	Method    string `json:"method,omitempty"`
	Signature string `json:"signature,omitempty"`
	Profit    uint64 `json:"profit,omitempty"`
}

func (n *Notifier) Notify(message *Message) error {
	if !n.Enabled() {
		return nil
	}
	requestJson, err := json.Marshal(message)
	if err != nil {
		return err
	}
	req, err := http.NewRequest("POST", n.url, bytes.NewReader(requestJson))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("response status code: %d", resp.StatusCode)
	}
	return nil
}
