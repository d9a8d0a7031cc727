package stream

import (
	"github.com/bytedance/sonic"

	"github.com/glasswinglabs/glasswing/internal/domain/frame"
	"github.com/glasswinglabs/glasswing/internal/engine"
)

// Server-to-client message shapes. Frames dominate the traffic; the codec
// is sonic end to end.

type frameMessage struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
	Data    string `json:"data"`
	URL     string `json:"url"`
	Title   string `json:"title"`
}

type navigationMessage struct {
	Type         string `json:"type"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	CanGoBack    bool   `json:"can_go_back"`
	CanGoForward bool   `json:"can_go_forward"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encodeFrame(f *frame.Frame) ([]byte, error) {
	return sonic.Marshal(frameMessage{
		Type:    "frame",
		Version: f.Version,
		Data:    f.DataURI(),
		URL:     f.URL,
		Title:   f.Title,
	})
}

func encodeNavigation(nav engine.NavState) ([]byte, error) {
	return sonic.Marshal(navigationMessage{
		Type:         "navigation",
		URL:          nav.URL,
		Title:        nav.Title,
		CanGoBack:    nav.CanGoBack,
		CanGoForward: nav.CanGoForward,
	})
}

func encodeError(code, message string) []byte {
	data, err := sonic.Marshal(errorMessage{
		Type:    "error",
		Code:    code,
		Message: message,
	})
	if err != nil {
		return []byte(`{"type":"error","code":"internal","message":"encoding failed"}`)
	}
	return data
}
